// Package errs centralizes the error shapes shared across the ledger core:
// transaction outcome codes (TER), SHAMap traversal failures, and a thin
// wrap helper used the way the rest of the tree wraps lower-level errors.
package errs

import "fmt"

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// TERClass groups a TER code into one of the six outcome classes from
// spec.md §4.E, declared in the order tel, tem, tef, ter, tes, tec.
type TERClass int

const (
	ClassTel TERClass = iota // local: bad form observed before propagation
	ClassTem                 // malformed: permanently bad
	ClassTef                 // failure: can't apply now or ever against this ledger
	ClassTer                 // retry: sequence gap, load
	ClassTes                 // success
	ClassTec                 // claimed: applied, fee taken, effects void
)

func (c TERClass) String() string {
	switch c {
	case ClassTel:
		return "tel"
	case ClassTem:
		return "tem"
	case ClassTef:
		return "tef"
	case ClassTer:
		return "ter"
	case ClassTes:
		return "tes"
	case ClassTec:
		return "tec"
	default:
		return "unknown"
	}
}

// TER is a transaction engine result code: a short symbolic name plus the
// class it belongs to. Only ClassTes and ClassTec results are written into
// a closed ledger (spec.md §4.E); the rest are rejected from the candidate
// set before a close, though ClassTer codes may be retried in a later one.
type TER struct {
	Class TERClass
	Code  string
}

func (t TER) Error() string { return t.Code }

// Succeeded reports whether t represents a ledger-writable outcome.
func (t TER) Succeeded() bool { return t.Class == ClassTes || t.Class == ClassTec }

// Retriable reports whether the candidate transaction may be reconsidered
// against a later ledger.
func (t TER) Retriable() bool { return t.Class == ClassTer }

var (
	TemMalformed    = TER{ClassTem, "temMALFORMED"}
	TemBadFee       = TER{ClassTem, "temBAD_FEE"}
	TemBadAmount    = TER{ClassTem, "temBAD_AMOUNT"}
	TemDisabled     = TER{ClassTem, "temDISABLED"}
	TemInvalidFlag  = TER{ClassTem, "temINVALID_FLAG"}
	TefBadSig       = TER{ClassTef, "tefBAD_SIG"}
	TefPastSeq      = TER{ClassTef, "tefPAST_SEQ"}
	TefMaxLedger    = TER{ClassTef, "tefMAX_LEDGER"}
	TerPreSeq       = TER{ClassTer, "terPRE_SEQ"}
	TerRetry        = TER{ClassTer, "terRETRY"}
	TecNoAuth       = TER{ClassTec, "tecNO_AUTH"}
	TecPathDry      = TER{ClassTec, "tecPATH_DRY"}
	TecUnfunded     = TER{ClassTec, "tecUNFUNDED_PAYMENT"}
	TecInsufFee     = TER{ClassTec, "tecINSUFFICIENT_FEE"}
	TecNoDst        = TER{ClassTec, "tecNO_DST"}
	TecDirFull      = TER{ClassTec, "tecDIR_FULL"}
	TesSuccess      = TER{ClassTes, "tesSUCCESS"}
	TelLocalError   = TER{ClassTel, "telLOCAL_ERROR"}
	TelInsufFeeP    = TER{ClassTel, "telINSUF_FEE_P"}
)

// MissingNodeKind identifies what a SHAMapMissingNode error was looking for.
type MissingNodeKind int

const (
	MissingByHash MissingNodeKind = iota
	MissingByKey
)

// MapType identifies which SHAMap a missing-node error occurred in,
// mirroring rippled's SHAMapType (original_source/src/ripple/shamap).
type MapType int

const (
	MapTransaction MapType = iota + 1
	MapState
	MapFree
)

// MissingNode is raised when a SHAMap traversal needs a node that is not
// present locally. Upper layers convert this into a retry: request the
// node from a peer/node-store, abort the current traversal, and reschedule
// (spec.md §7).
type MissingNode struct {
	Type MapType
	Kind MissingNodeKind
	Hash [32]byte
	Key  [32]byte
}

func (e *MissingNode) Error() string {
	if e.Kind == MissingByHash {
		return fmt.Sprintf("SHAMapMissingNode: type=%d hash=%x", e.Type, e.Hash)
	}
	return fmt.Sprintf("SHAMapMissingNode: type=%d key=%x", e.Type, e.Key)
}

// Invariant signals a failed post-apply invariant check (spec.md §4.E). A
// repeating invariant violation escalates beyond a single transaction to a
// full-node halt; that escalation policy lives in the caller, not here.
type Invariant struct {
	Name   string
	Detail string
}

func (e *Invariant) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Name, e.Detail)
}
