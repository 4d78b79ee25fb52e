package ledger

// Namespace tags. Every entity keyspace lives in the single `entities`
// physical keyspace, disambiguated by kv.NamespaceHash(tag). Tags are
// never renamed once shipped: a rename changes the namespace's hash and
// silently loses the existing range.
const (
	NSAccounts   = "accounts"
	NSPools      = "pools"
	NSDReps      = "dreps"
	NSProposals  = "proposals"
	NSEpochState = "epoch_state"
	NSNonces     = "nonces"
)

// EpochStateKey is the literal singleton key for the EpochState entity.
var EpochStateKey = []byte("CURRENT_EPOCH")

// NoncesKey is the literal singleton key for the Nonces entity.
var NoncesKey = []byte("CURRENT_NONCES")
