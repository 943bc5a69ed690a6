package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/shopspring/decimal"

	"github.com/ahosny-dev/wallet-ledger/internal/ledger"
	"github.com/ahosny-dev/wallet-ledger/internal/models"
)

const (
	// ledgerPartition holds every transaction row. Azure table batches are
	// atomic only within one partition, and the ledger's atomic units
	// (transfer pairs, cascade deletes, bulk commits) span the whole log.
	ledgerPartition = "LEDGER"

	settingsPartition = "SETTINGS"
	settingsRowKey    = "main"

	// maxBatchActions is the Azure Table Storage transaction limit.
	maxBatchActions = 100
)

// DatabaseService stores the transaction log and settings in Azure Table
// Storage.
type DatabaseService struct {
	serviceClient     *aztables.ServiceClient
	transactionsTable string
	settingsTable     string
}

// NewDatabaseService creates a DatabaseService and ensures its tables exist.
func NewDatabaseService() (*DatabaseService, error) {
	tableURL := os.Getenv("TABLE_SERVICE_URL")
	if tableURL == "" {
		return nil, fmt.Errorf("TABLE_SERVICE_URL environment variable is required")
	}

	transactionsTable := os.Getenv("TRANSACTIONS_TABLE")
	if transactionsTable == "" {
		transactionsTable = "transactions"
	}
	settingsTable := os.Getenv("SETTINGS_TABLE")
	if settingsTable == "" {
		settingsTable = "settings"
	}

	var client *aztables.ServiceClient

	// Check if running locally with Azurite (http endpoint)
	if isLocal(tableURL) {
		slog.Info("using Azurite credentials for database service")
		name, key := getAzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client with shared key: %w", err)
		}
	} else {
		// Production: Managed Identity
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = aztables.NewServiceClient(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client: %w", err)
		}
	}

	svc := &DatabaseService{
		serviceClient:     client,
		transactionsTable: transactionsTable,
		settingsTable:     settingsTable,
	}

	if err := svc.CreateTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("database service initialized successfully",
		"table_url", tableURL,
		"transactions_table", transactionsTable,
		"settings_table", settingsTable,
	)
	return svc, nil
}

// CreateTables ensures the required tables exist.
func (s *DatabaseService) CreateTables(ctx context.Context) error {
	for _, tableName := range []string{s.transactionsTable, s.settingsTable} {
		_, err := s.serviceClient.CreateTable(ctx, tableName, nil)
		if err != nil {
			var azErr *azcore.ResponseError
			if errors.As(err, &azErr) && azErr.ErrorCode == "TableAlreadyExists" {
				continue
			}
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}
	return nil
}

func (s *DatabaseService) getClient(tableName string) *aztables.Client {
	return s.serviceClient.NewClient(tableName)
}

// transactionEntity maps a ledger entry to a table entity. Amounts are
// stored as strings so decimal values round-trip exactly.
func transactionEntity(t models.Transaction) map[string]any {
	entity := map[string]any{
		"PartitionKey":  ledgerPartition,
		"RowKey":        t.ID,
		"CreatedAt":     t.CreatedAt,
		"Date":          t.Date,
		"Wallet":        string(t.Wallet),
		"Type":          string(t.Type),
		"Amount":        t.Amount.String(),
		"Channel":       t.Channel,
		"CustomerName":  t.CustomerName,
		"AccountNumber": t.AccountNumber,
		"Employee":      t.Employee,
		"Note":          t.Note,
	}
	if t.TransferTo != nil {
		entity["TransferTo"] = string(*t.TransferTo)
	}
	if t.TransferGroupID != nil {
		entity["TransferGroupId"] = *t.TransferGroupID
	}
	return entity
}

func parseTransactionEntity(raw []byte) (models.Transaction, error) {
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to parse entity: %w", err)
	}

	getString := func(key string) string {
		if v, ok := parsed[key].(string); ok {
			return v
		}
		return ""
	}

	var amount decimal.Decimal
	switch v := parsed["Amount"].(type) {
	case string:
		var err error
		amount, err = decimal.NewFromString(v)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("invalid stored amount %q: %w", v, err)
		}
	case float64:
		amount = decimal.NewFromFloat(v)
	default:
		return models.Transaction{}, fmt.Errorf("missing stored amount")
	}

	t := models.Transaction{
		ID:            getString("RowKey"),
		CreatedAt:     getString("CreatedAt"),
		Date:          getString("Date"),
		Wallet:        models.Wallet(getString("Wallet")),
		Type:          models.TransactionType(getString("Type")),
		Amount:        amount,
		Channel:       getString("Channel"),
		CustomerName:  getString("CustomerName"),
		AccountNumber: getString("AccountNumber"),
		Employee:      getString("Employee"),
		Note:          getString("Note"),
	}
	if v := getString("TransferTo"); v != "" {
		w := models.Wallet(v)
		t.TransferTo = &w
	}
	if v := getString("TransferGroupId"); v != "" {
		t.TransferGroupID = &v
	}
	return t, nil
}

// GetTransaction fetches one ledger entry by ID.
func (s *DatabaseService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	client := s.getClient(s.transactionsTable)
	resp, err := client.GetEntity(ctx, ledgerPartition, id, nil)
	if err != nil {
		var azErr *azcore.ResponseError
		if errors.As(err, &azErr) && azErr.StatusCode == 404 {
			return nil, fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	t, err := parseTransactionEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DatabaseService) listWithFilter(ctx context.Context, filter string) ([]models.Transaction, error) {
	client := s.getClient(s.transactionsTable)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
	})

	var transactions []models.Transaction
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		for _, entity := range resp.Entities {
			t, err := parseTransactionEntity(entity)
			if err != nil {
				slog.Warn("skipping unreadable transaction entity", "error", err)
				continue
			}
			transactions = append(transactions, t)
		}
	}
	return transactions, nil
}

// ListTransactions returns the full transaction log.
func (s *DatabaseService) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.listWithFilter(ctx, fmt.Sprintf("PartitionKey eq '%s'", ledgerPartition))
}

// QueryByTransferGroup returns every entry with the given transfer group ID.
func (s *DatabaseService) QueryByTransferGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and TransferGroupId eq '%s'", ledgerPartition, groupID)
	return s.listWithFilter(ctx, filter)
}

// batchAction pairs a table action with the transfer group it belongs to and
// with the action that reverses it once committed. Chunking never separates
// the two halves of a pair; undo actions drive the rollback when a later
// chunk fails.
type batchAction struct {
	action aztables.TransactionAction
	group  string
	undo   *aztables.TransactionAction
}

func deleteAction(id string) (aztables.TransactionAction, error) {
	keysJSON, err := json.Marshal(map[string]any{
		"PartitionKey": ledgerPartition,
		"RowKey":       id,
	})
	if err != nil {
		return aztables.TransactionAction{}, fmt.Errorf("failed to marshal keys for %s: %w", id, err)
	}
	return aztables.TransactionAction{ActionType: aztables.TransactionTypeDelete, Entity: keysJSON}, nil
}

func upsertAction(t models.Transaction) (aztables.TransactionAction, error) {
	entityJSON, err := json.Marshal(transactionEntity(t))
	if err != nil {
		return aztables.TransactionAction{}, fmt.Errorf("failed to marshal transaction %s: %w", t.ID, err)
	}
	return aztables.TransactionAction{ActionType: aztables.TransactionTypeInsertReplace, Entity: entityJSON}, nil
}

// Apply executes a write plan as an all-or-nothing table transaction. Plans
// larger than the Azure batch limit are split, but entries sharing a
// transfer group always land in the same batch, and a failed later batch
// rolls the earlier ones back so no partial write stays visible.
func (s *DatabaseService) Apply(ctx context.Context, plan ledger.WritePlan) error {
	if plan.IsEmpty() {
		return nil
	}

	var actions []batchAction
	appendEntity := func(t models.Transaction, actionType aztables.TransactionType, undo *aztables.TransactionAction) error {
		entityJSON, err := json.Marshal(transactionEntity(t))
		if err != nil {
			return fmt.Errorf("failed to marshal transaction %s: %w", t.ID, err)
		}
		group := ""
		if t.TransferGroupID != nil {
			group = *t.TransferGroupID
		}
		actions = append(actions, batchAction{
			action: aztables.TransactionAction{ActionType: actionType, Entity: entityJSON},
			group:  group,
			undo:   undo,
		})
		return nil
	}

	// Puts and plan-level deletes cannot be reversed without their prior
	// state. The linker only emits them in plans of a handful of actions,
	// which fit one genuinely atomic batch; only adds can overflow, and a
	// committed add is undone by deleting it.
	for _, t := range plan.Puts {
		if err := appendEntity(t, aztables.TransactionTypeInsertReplace, nil); err != nil {
			return err
		}
	}
	for _, t := range plan.Adds {
		undo, err := deleteAction(t.ID)
		if err != nil {
			return err
		}
		if err := appendEntity(t, aztables.TransactionTypeAdd, &undo); err != nil {
			return err
		}
	}
	for _, id := range plan.Deletes {
		del, err := deleteAction(id)
		if err != nil {
			return err
		}
		actions = append(actions, batchAction{action: del})
	}

	_, err := s.submitChunked(ctx, actions)
	return err
}

// chunkActions splits actions into batches within the table transaction
// limit. A run of consecutive actions sharing a transfer group is never
// split across batches.
func chunkActions(actions []batchAction, limit int) [][]batchAction {
	var chunks [][]batchAction
	var batch []batchAction
	for i := 0; i < len(actions); {
		j := i + 1
		if actions[i].group != "" {
			for j < len(actions) && actions[j].group == actions[i].group {
				j++
			}
		}
		if len(batch) > 0 && len(batch)+(j-i) > limit {
			chunks = append(chunks, batch)
			batch = nil
		}
		batch = append(batch, actions[i:j]...)
		i = j
	}
	if len(batch) > 0 {
		chunks = append(chunks, batch)
	}
	return chunks
}

// undoActions builds the reversal list for committed actions, newest first.
// It fails if any committed action carries no reversal.
func undoActions(committed []batchAction) ([]batchAction, error) {
	undos := make([]batchAction, 0, len(committed))
	for i := len(committed) - 1; i >= 0; i-- {
		if committed[i].undo == nil {
			return nil, fmt.Errorf("committed action has no reversal")
		}
		undos = append(undos, batchAction{action: *committed[i].undo})
	}
	return undos, nil
}

// submitChunked executes the actions as one or more table transactions.
// When a later chunk fails, the chunks already committed are reversed
// through their undo actions. It returns the committed actions so callers
// coordinating writes beyond this table can reverse them too.
func (s *DatabaseService) submitChunked(ctx context.Context, actions []batchAction) ([]batchAction, error) {
	client := s.getClient(s.transactionsTable)

	var committed []batchAction
	for _, chunk := range chunkActions(actions, maxBatchActions) {
		batch := make([]aztables.TransactionAction, 0, len(chunk))
		for _, a := range chunk {
			batch = append(batch, a.action)
		}
		if _, err := client.SubmitTransaction(ctx, batch, nil); err != nil {
			if rbErr := s.rollback(ctx, committed); rbErr != nil {
				return nil, fmt.Errorf("failed to submit transaction batch: %w (rollback failed, partial state remains: %v)", err, rbErr)
			}
			return nil, fmt.Errorf("failed to submit transaction batch: %w", err)
		}
		committed = append(committed, chunk...)
	}
	return committed, nil
}

// rollback reverses committed actions, newest first.
func (s *DatabaseService) rollback(ctx context.Context, committed []batchAction) error {
	undos, err := undoActions(committed)
	if err != nil {
		return err
	}
	if len(undos) == 0 {
		return nil
	}
	slog.Warn("rolling back committed batches", "actions", len(undos))

	client := s.getClient(s.transactionsTable)
	for _, chunk := range chunkActions(undos, maxBatchActions) {
		batch := make([]aztables.TransactionAction, 0, len(chunk))
		for _, a := range chunk {
			batch = append(batch, a.action)
		}
		if _, err := client.SubmitTransaction(ctx, batch, nil); err != nil {
			return fmt.Errorf("failed to submit rollback batch: %w", err)
		}
	}
	return nil
}

// BulkAdd inserts a set of new entries as one atomic commit.
func (s *DatabaseService) BulkAdd(ctx context.Context, transactions []models.Transaction) error {
	return s.Apply(ctx, ledger.WritePlan{Adds: transactions})
}

// removeAllActions builds delete actions for the given entries, each undone
// by re-inserting the entry it removed.
func removeAllActions(transactions []models.Transaction) ([]batchAction, error) {
	actions := make([]batchAction, 0, len(transactions))
	for _, t := range transactions {
		del, err := deleteAction(t.ID)
		if err != nil {
			return nil, err
		}
		undo, err := upsertAction(t)
		if err != nil {
			return nil, err
		}
		actions = append(actions, batchAction{action: del, undo: &undo})
	}
	return actions, nil
}

// Clear removes every ledger entry. A failure part way through re-inserts
// the already deleted entries.
func (s *DatabaseService) Clear(ctx context.Context) error {
	transactions, err := s.ListTransactions(ctx)
	if err != nil {
		return err
	}
	actions, err := removeAllActions(transactions)
	if err != nil {
		return err
	}
	_, err = s.submitChunked(ctx, actions)
	return err
}

// replaceAllActions swaps the stored log for the next one: every next entry
// is upserted (undone by restoring the prior version, or deleting a fresh
// insert) and every prior entry absent from next is deleted (undone by
// re-inserting it). No row key appears twice, as table batches require.
func replaceAllActions(prior, next []models.Transaction) ([]batchAction, error) {
	priorByID := make(map[string]models.Transaction, len(prior))
	for _, t := range prior {
		priorByID[t.ID] = t
	}

	nextIDs := make(map[string]bool, len(next))
	actions := make([]batchAction, 0, len(next)+len(prior))
	for _, t := range next {
		nextIDs[t.ID] = true
		act, err := upsertAction(t)
		if err != nil {
			return nil, err
		}
		var undo aztables.TransactionAction
		if old, ok := priorByID[t.ID]; ok {
			undo, err = upsertAction(old)
		} else {
			undo, err = deleteAction(t.ID)
		}
		if err != nil {
			return nil, err
		}
		group := ""
		if t.TransferGroupID != nil {
			group = *t.TransferGroupID
		}
		actions = append(actions, batchAction{action: act, group: group, undo: &undo})
	}
	for _, t := range prior {
		if nextIDs[t.ID] {
			continue
		}
		del, err := deleteAction(t.ID)
		if err != nil {
			return nil, err
		}
		undo, err := upsertAction(t)
		if err != nil {
			return nil, err
		}
		actions = append(actions, batchAction{action: del, undo: &undo})
	}
	return actions, nil
}

// ReplaceAll restores the full state from a backup. The transaction log is
// swapped in one reversible action stream, then settings are replaced; a
// failure at any point rolls the log back to its prior state, so a restore
// never leaves the ledger wiped but unpopulated.
func (s *DatabaseService) ReplaceAll(ctx context.Context, transactions []models.Transaction, settings models.Settings) error {
	prior, err := s.ListTransactions(ctx)
	if err != nil {
		return err
	}
	actions, err := replaceAllActions(prior, transactions)
	if err != nil {
		return err
	}
	committed, err := s.submitChunked(ctx, actions)
	if err != nil {
		return err
	}
	if err := s.PutSettings(ctx, settings); err != nil {
		if rbErr := s.rollback(ctx, committed); rbErr != nil {
			return fmt.Errorf("failed to save settings: %w (rollback failed, partial state remains: %v)", err, rbErr)
		}
		return err
	}
	return nil
}

// GetSettings loads the settings record, creating the all-zero default on
// first run.
func (s *DatabaseService) GetSettings(ctx context.Context) (models.Settings, error) {
	client := s.getClient(s.settingsTable)
	resp, err := client.GetEntity(ctx, settingsPartition, settingsRowKey, nil)
	if err != nil {
		var azErr *azcore.ResponseError
		if errors.As(err, &azErr) && azErr.StatusCode == 404 {
			defaults := models.DefaultSettings()
			if err := s.PutSettings(ctx, defaults); err != nil {
				return models.Settings{}, err
			}
			return defaults, nil
		}
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(resp.Value, &parsed); err != nil {
		return models.Settings{}, fmt.Errorf("failed to parse settings entity: %w", err)
	}

	settings := models.DefaultSettings()
	for _, w := range models.AllWallets {
		if v, ok := parsed["Opening_"+string(w)].(string); ok {
			if d, err := decimal.NewFromString(v); err == nil {
				settings.OpeningBalances[w] = d
			}
		}
	}
	return settings, nil
}

// PutSettings upserts the settings record.
func (s *DatabaseService) PutSettings(ctx context.Context, settings models.Settings) error {
	client := s.getClient(s.settingsTable)

	entity := map[string]any{
		"PartitionKey": settingsPartition,
		"RowKey":       settingsRowKey,
	}
	for _, w := range models.AllWallets {
		entity["Opening_"+string(w)] = settings.Opening(w).String()
	}

	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if _, err := client.UpsertEntity(ctx, entityJSON, nil); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
