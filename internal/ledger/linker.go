package ledger

import (
	"errors"
	"fmt"

	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

// ErrNotFound is returned by stores when a requested entry does not exist.
var ErrNotFound = errors.New("not found")

// ErrDeleteModeRequired is returned when a delete targets a transfer group
// member without a resolution mode. The caller must pick single or group;
// the core never decides the cascade on its own.
var ErrDeleteModeRequired = errors.New("entry belongs to a transfer; delete mode required")

// ErrGroupCorrupted reports a transfer group whose observed cardinality is
// not 2. This indicates prior data corruption; it is surfaced, never
// silently healed.
var ErrGroupCorrupted = errors.New("transfer group corrupted")

// DeleteMode resolves what happens to the sibling when a transfer group
// member is deleted.
type DeleteMode string

const (
	// DeleteSingle removes only the targeted entry and severs the link; the
	// sibling survives as a standalone entry.
	DeleteSingle DeleteMode = "single"
	// DeleteGroup removes both members of the transfer group.
	DeleteGroup DeleteMode = "group"
)

// ParseDeleteMode validates a caller-supplied mode string.
func ParseDeleteMode(value string) (DeleteMode, error) {
	switch DeleteMode(value) {
	case DeleteSingle, DeleteGroup:
		return DeleteMode(value), nil
	}
	return "", fmt.Errorf("unknown delete mode: %q", value)
}

// WritePlan is one atomic unit of ledger writes. Either every operation in
// the plan lands or none does.
type WritePlan struct {
	Puts    []models.Transaction // insert or replace by ID
	Adds    []models.Transaction // insert, ID must be new
	Deletes []string             // IDs to remove
}

// IsEmpty reports whether the plan contains no operations.
func (p WritePlan) IsEmpty() bool {
	return len(p.Puts) == 0 && len(p.Adds) == 0 && len(p.Deletes) == 0
}

// TransferNote builds the system-generated note for a synthesized deposit,
// referencing the source wallet and preserving any user note.
func TransferNote(source models.Wallet, userNote string) string {
	note := "تحويل من " + source.Label()
	if userNote != "" {
		note += ": " + userNote
	}
	return note
}

// synthesizeCounterpart builds the deposit half of a transfer from its
// withdrawal. Descriptive fields carry over except the note, which is
// replaced by the transfer note.
func synthesizeCounterpart(withdrawal models.Transaction) models.Transaction {
	return models.Transaction{
		ID:              models.NewID(),
		CreatedAt:       models.Now(),
		Date:            withdrawal.Date,
		Wallet:          *withdrawal.TransferTo,
		Type:            models.TypeDeposit,
		Amount:          withdrawal.Amount,
		Channel:         withdrawal.Channel,
		CustomerName:    withdrawal.CustomerName,
		AccountNumber:   withdrawal.AccountNumber,
		Employee:        withdrawal.Employee,
		Note:            TransferNote(withdrawal.Wallet, withdrawal.Note),
		TransferGroupID: withdrawal.TransferGroupID,
	}
}

// PlanCreate validates a new entry and plans its writes. A withdrawal with a
// destination wallet becomes a transfer: the entry gets a fresh group ID and
// a deposit counterpart is synthesized in the destination wallet.
func PlanCreate(entry models.Transaction) (WritePlan, error) {
	if err := entry.Validate(); err != nil {
		return WritePlan{}, err
	}

	if !entry.IsTransferWithdrawal() {
		entry.TransferGroupID = nil
		return WritePlan{Puts: []models.Transaction{entry}}, nil
	}

	groupID := models.NewID()
	entry.TransferGroupID = &groupID
	return WritePlan{
		Puts: []models.Transaction{entry},
		Adds: []models.Transaction{synthesizeCounterpart(entry)},
	}, nil
}

// PlanEdit replaces an existing entry. The transfer relationship never
// carries over an edit: any previous sibling is removed first, then the
// edited entry is planned from scratch as if newly created, keeping its
// original ID and creation timestamp.
//
// priorSiblings are the other members of the entry's previous transfer
// group, if it had one; the caller looks them up before planning.
func PlanEdit(edited models.Transaction, priorSiblings []models.Transaction) (WritePlan, error) {
	if len(priorSiblings) > 1 {
		return WritePlan{}, fmt.Errorf("%w: %d siblings for one entry", ErrGroupCorrupted, len(priorSiblings))
	}

	edited.TransferGroupID = nil
	plan, err := PlanCreate(edited)
	if err != nil {
		return WritePlan{}, err
	}
	for _, sibling := range priorSiblings {
		plan.Deletes = append(plan.Deletes, sibling.ID)
	}
	return plan, nil
}

// PlanDelete plans the removal of an entry. A standalone entry is removed
// outright and mode is ignored. A transfer group member requires an explicit
// mode: DeleteGroup cascades to the sibling, DeleteSingle keeps the sibling
// and clears its group ID so the group ends at cardinality zero, never one.
func PlanDelete(target models.Transaction, siblings []models.Transaction, mode DeleteMode) (WritePlan, error) {
	if target.TransferGroupID == nil {
		return WritePlan{Deletes: []string{target.ID}}, nil
	}
	if mode == "" {
		return WritePlan{}, ErrDeleteModeRequired
	}
	if len(siblings) != 1 {
		return WritePlan{}, fmt.Errorf("%w: group %s has %d members", ErrGroupCorrupted, *target.TransferGroupID, len(siblings)+1)
	}

	switch mode {
	case DeleteGroup:
		return WritePlan{Deletes: []string{target.ID, siblings[0].ID}}, nil
	case DeleteSingle:
		severed := siblings[0]
		severed.TransferGroupID = nil
		return WritePlan{
			Deletes: []string{target.ID},
			Puts:    []models.Transaction{severed},
		}, nil
	}
	return WritePlan{}, fmt.Errorf("unknown delete mode: %q", mode)
}
