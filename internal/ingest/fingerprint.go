package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

// fieldSep joins fingerprint inputs. The ASCII unit separator cannot
// appear in bank export fields, so concatenations are unambiguous.
const fieldSep = "\x1f"

// Fingerprint derives the stable content identity of a transaction:
// the hex SHA-256 over booking date, exact amount, counterparty and memo.
// Source file and row position deliberately do not participate, so the
// same statement line re-imported from a different export resolves to
// the same ledger entry.
//
// Counterparty and memo are hashed as-is; casing or whitespace variants
// of otherwise identical lines stay distinct entries.
func Fingerprint(tx core.Transaction) string {
	sum := sha256.Sum256([]byte(contentKey(tx)))
	return hex.EncodeToString(sum[:])
}

func contentKey(tx core.Transaction) string {
	return strings.Join([]string{
		tx.BookingDate.ISO(),
		tx.Amount.String(),
		tx.Counterparty,
		tx.Memo,
	}, fieldSep)
}
