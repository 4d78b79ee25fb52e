package epoch

// EnactmentTable is the documented hack standing in for the full
// governance-action ratification and enactment machinery: a hard-coded,
// per-network map from a proposal's id ("{tx_hash_hex}#{index}") to the
// epoch it actually enacted on chain. A proposal absent from the table is
// treated as never-enacting; there is no automatic fallback to computing
// ratification from committee/DRep/SPO votes. New enactments require a
// code change and a new entry here.
type EnactmentTable map[string]map[string]uint64

// NewEnactmentTable returns the table seeded for the networks this engine
// knows about. It starts empty for every network: callers running against
// historical mainnet/preprod/preview data that crosses a known enactment
// must populate entries themselves (typically loaded from a small
// config file shipped alongside the binary, not compiled in, since the
// set of known proposals grows between releases).
func NewEnactmentTable() EnactmentTable {
	return EnactmentTable{
		"mainnet": {},
		"preprod": {},
		"preview": {},
	}
}

// EnactmentEpoch reports the epoch proposalID enacted on network, if
// known.
func (t EnactmentTable) EnactmentEpoch(network, proposalID string) (uint64, bool) {
	byID, ok := t[network]
	if !ok {
		return 0, false
	}
	epoch, ok := byID[proposalID]
	return epoch, ok
}

// Set records proposalID as having enacted at epoch on network. The sweep
// itself only reads the table; in this module Set is called from tests.
func (t EnactmentTable) Set(network, proposalID string, epoch uint64) {
	if t[network] == nil {
		t[network] = make(map[string]uint64)
	}
	t[network][proposalID] = epoch
}
