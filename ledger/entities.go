package ledger

import (
	"encoding/binary"
)

// EraTag identifies the ledger era a UTxO's CBOR payload was produced in.
type EraTag uint16

const (
	EraByron EraTag = iota
	EraShelley
	EraAllegra
	EraMary
	EraAlonzo
	EraBabbage
	EraConway
)

// TxoRef identifies a transaction output: (tx_hash, output_index).
type TxoRef struct {
	TxHash [32]byte
	Index  uint32
}

// Bytes encodes the ref into its 36-byte key form: tx_hash ++
// index_be_u32.
func (r TxoRef) Bytes() []byte {
	out := make([]byte, 36)
	copy(out[:32], r.TxHash[:])
	binary.BigEndian.PutUint32(out[32:], r.Index)
	return out
}

// UTxO is the value half of a UTxO entry: the era it was produced in plus
// its raw CBOR output body.
type UTxO struct {
	Era  EraTag `cbor:"0,keyasint"`
	CBOR []byte `cbor:"1,keyasint"`
}

// StakeSums tracks the three running sums an AccountState must keep:
// cumulative UTxO-derived stake delegated, cumulative rewards earned, and
// cumulative withdrawals taken.
type StakeSums struct {
	UtxoSum       uint64 `cbor:"0,keyasint"`
	RewardsSum    uint64 `cbor:"1,keyasint"`
	WithdrawalSum uint64 `cbor:"2,keyasint"`
}

// AccountState is keyed by a serialized stake credential.
type AccountState struct {
	RegisteredSlot   *uint64                  `cbor:"0,keyasint"`
	DeregisteredSlot *uint64                  `cbor:"1,keyasint"`
	PoolDelegation   EpochValue[*[28]byte]    `cbor:"2,keyasint"`
	DRepDelegation   EpochValue[*[]byte]      `cbor:"3,keyasint"`
	Stake            EpochValue[StakeSums]    `cbor:"4,keyasint"`
	RewardsSum       uint64                   `cbor:"5,keyasint"`
	WithdrawalsSum   uint64                   `cbor:"6,keyasint"`
}

// Invariant: RewardsSum >= WithdrawalsSum at all times. Checked by callers
// at delta-application time, not encoded structurally.

// PoolSnapshot is the three-deep temporal view of a pool's registration
// state used by the rewards calculation.
type PoolSnapshot struct {
	IsNew        bool           `cbor:"0,keyasint"`
	IsRetired    bool           `cbor:"1,keyasint"`
	BlocksMinted uint64         `cbor:"2,keyasint"`
	Params       PoolParams     `cbor:"3,keyasint"`
}

// PoolParams is a pool's registration certificate payload.
type PoolParams struct {
	Pledge        uint64   `cbor:"0,keyasint"`
	Cost          uint64   `cbor:"1,keyasint"`
	MarginNum     uint64   `cbor:"2,keyasint"`
	MarginDenom   uint64   `cbor:"3,keyasint"`
	RewardAccount []byte   `cbor:"4,keyasint"`
	Owners        [][]byte `cbor:"5,keyasint"`
	Relays        [][]byte `cbor:"6,keyasint"`
	MetadataURL   string   `cbor:"7,keyasint"`
	MetadataHash  []byte   `cbor:"8,keyasint"`
}

// PoolState is keyed by a 28-byte pool operator hash.
type PoolState struct {
	Params            PoolParams               `cbor:"0,keyasint"`
	RetiringEpoch     *uint64                  `cbor:"1,keyasint"`
	BlocksMintedTotal uint64                   `cbor:"2,keyasint"`
	RegisterSlot      uint64                   `cbor:"3,keyasint"`
	Deposit           uint64                   `cbor:"4,keyasint"`
	Snapshot          EpochValue[PoolSnapshot] `cbor:"5,keyasint"`
}

// DRepState is keyed by a DRep identifier (credential bytes).
type DRepState struct {
	LastActiveSlot uint64 `cbor:"0,keyasint"`
	InitialSlot    uint64 `cbor:"1,keyasint"`
	Expired        bool   `cbor:"2,keyasint"`
	Deposit        uint64 `cbor:"3,keyasint"`
	AnchorURL      string `cbor:"4,keyasint"`
	AnchorHash     []byte `cbor:"5,keyasint"`
}

// GovActionKind enumerates the governance action payload kinds this engine
// understands well enough to enact.
type GovActionKind int

const (
	GovActionParameterChange GovActionKind = iota
	GovActionHardForkInitiation
	GovActionTreasuryWithdrawal
	GovActionNoConfidence
	GovActionNewCommittee
	GovActionNewConstitution
	GovActionInfo
)

// GovAction is a governance action payload. Param is a raw CBOR-encoded
// protocol-parameter-update fragment for ParameterChange/HardForkInitiation
// actions; other kinds carry their own opaque payload here.
type GovAction struct {
	Kind  GovActionKind `cbor:"0,keyasint"`
	Param []byte        `cbor:"1,keyasint"`
}

// Proposal is keyed by (tx_hash, proposal_index).
type Proposal struct {
	TxHash         [32]byte  `cbor:"0,keyasint"`
	Index          uint32    `cbor:"1,keyasint"`
	SubmissionSlot uint64    `cbor:"2,keyasint"`
	Action         GovAction `cbor:"3,keyasint"`
	RatifiedEpoch  *uint64   `cbor:"4,keyasint"`
	EnactedEpoch   *uint64   `cbor:"5,keyasint"`
	DroppedEpoch   *uint64   `cbor:"6,keyasint"`
	ExpiredEpoch   *uint64   `cbor:"7,keyasint"`
}

// Key returns the 36-byte storage key for the proposal.
func (p Proposal) Key() []byte {
	out := make([]byte, 36)
	copy(out[:32], p.TxHash[:])
	binary.BigEndian.PutUint32(out[32:], p.Index)
	return out
}

// Pots is the set of six lovelace aggregates that must always sum to the
// network's max supply.
type Pots struct {
	Reserves uint64 `cbor:"0,keyasint"`
	Treasury uint64 `cbor:"1,keyasint"`
	Fees     uint64 `cbor:"2,keyasint"`
	Deposits uint64 `cbor:"3,keyasint"`
	Utxos    uint64 `cbor:"4,keyasint"`
	Rewards  uint64 `cbor:"5,keyasint"`
}

// Sum returns the total of all six pots.
func (p Pots) Sum() uint64 {
	return p.Reserves + p.Treasury + p.Fees + p.Deposits + p.Utxos + p.Rewards
}

// RollingCounters accumulate per-epoch activity that the sweep folds into
// the next pots computation.
type RollingCounters struct {
	ProducedUtxos  uint64 `cbor:"0,keyasint"`
	ConsumedUtxos  uint64 `cbor:"1,keyasint"`
	GatheredFees   uint64 `cbor:"2,keyasint"`
	BlocksMinted   uint64 `cbor:"3,keyasint"`
	NewAccounts    uint64 `cbor:"4,keyasint"`
	RemovedAccounts uint64 `cbor:"5,keyasint"`
	Withdrawals    uint64 `cbor:"6,keyasint"`
	GatheredDeposits uint64 `cbor:"7,keyasint"`
	RefundedDeposits uint64 `cbor:"8,keyasint"`
}

// Incentives carries the monetary-expansion inputs computed at the start
// of a sweep so that the invariant-checking code and tests can observe
// them independently of the pots delta.
type Incentives struct {
	Eta               float64 `cbor:"0,keyasint"`
	EffectiveRewards  uint64  `cbor:"1,keyasint"`
	UnspendableRewards uint64 `cbor:"2,keyasint"`
	ReturnedRewards   uint64  `cbor:"3,keyasint"`
}

// ProtocolParams is the subset of protocol parameters the reward/fee
// calculations and governance enactment consult.
type ProtocolParams struct {
	MajorVersion          uint32  `cbor:"0,keyasint"`
	MinorVersion          uint32  `cbor:"1,keyasint"`
	MonetaryExpansion     float64 `cbor:"2,keyasint"` // rho
	TreasuryTax           float64 `cbor:"3,keyasint"` // tau
	OptimalPoolCount       uint64  `cbor:"4,keyasint"` // k
	PoolInfluence         float64 `cbor:"5,keyasint"` // a0
	ActiveSlotsCoeff      float64 `cbor:"6,keyasint"` // f
	SlotsPerEpoch         uint64  `cbor:"7,keyasint"`
	DRepInactivityPeriod  uint64  `cbor:"8,keyasint"`
	GovActionValidityPeriod uint64 `cbor:"9,keyasint"`
	MaxLovelaceSupply     uint64  `cbor:"10,keyasint"`
	Decentralisation      float64 `cbor:"11,keyasint"` // d; 0 once fully decentralized, kept for pre-Shelley-handover epochs
}

// EpochState is the singleton ledger-wide state entity, keyed by
// EpochStateKey.
type EpochState struct {
	Epoch             uint64          `cbor:"0,keyasint"`
	InitialPots       Pots            `cbor:"1,keyasint"`
	Incentives        Incentives      `cbor:"2,keyasint"`
	Counters          RollingCounters `cbor:"3,keyasint"`
	Params            ProtocolParams  `cbor:"4,keyasint"`
	LargestStableSlot uint64          `cbor:"5,keyasint"`
	EraTransition     bool            `cbor:"6,keyasint"`
}

// Nonces tracks the evolving Ouroboros Praos nonces, keyed by NoncesKey.
type Nonces struct {
	Epoch      [32]byte `cbor:"0,keyasint"`
	Evolving   [32]byte `cbor:"1,keyasint"`
	Candidate  [32]byte `cbor:"2,keyasint"`
	PrevHash   [32]byte `cbor:"3,keyasint"`
	Bootstrapped bool   `cbor:"4,keyasint"`
}
