// Package storage provides Storage implementations: PostgreSQL for
// production and an in-memory store for examples and scenario tests. It is
// the only place snake_case rows are mapped to domain types.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/canvasworks/shopstock/pkg/inventory"
	"github.com/canvasworks/shopstock/pkg/jobs"
)

// PostgreSQLStorage implements the Storage interface using PostgreSQL
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ inventory.Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}, nil
}

// item catalog

// CreateItem creates a new inventory item row
func (s *PostgreSQLStorage) CreateItem(ctx context.Context, item *inventory.Item) error {
	query := `
		INSERT INTO inventory_items (id, name, category, in_stock, on_order, reorder_point, unit, unit_price, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		string(item.Category),
		item.InStock,
		item.OnOrder,
		item.ReorderPoint,
		item.Unit,
		item.UnitPrice,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return inventory.ErrDuplicateItem
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetItem retrieves an inventory item by ID
func (s *PostgreSQLStorage) GetItem(ctx context.Context, itemID string) (*inventory.Item, error) {
	query := `
		SELECT id, name, category, in_stock, on_order, reorder_point, unit, unit_price, version, created_at, updated_at
		FROM inventory_items
		WHERE id = $1`

	item := &inventory.Item{}
	var category string
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID,
		&item.Name,
		&category,
		&item.InStock,
		&item.OnOrder,
		&item.ReorderPoint,
		&item.Unit,
		&item.UnitPrice,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, inventory.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	item.Category = inventory.ItemCategory(category)

	return item, nil
}

// UpdateItem updates an item's catalog fields (name, category, reorder
// point, unit, price); stock columns go through UpdateItemStock.
func (s *PostgreSQLStorage) UpdateItem(ctx context.Context, item *inventory.Item) error {
	query := `
		UPDATE inventory_items
		SET name = $2, category = $3, reorder_point = $4, unit = $5, unit_price = $6, updated_at = $7
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		string(item.Category),
		item.ReorderPoint,
		item.Unit,
		item.UnitPrice,
		item.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return inventory.ErrItemNotFound
	}

	return nil
}

// UpdateItemStock writes in_stock and on_order with a compare-and-swap on
// the version column so concurrent read-modify-write sequences surface as
// ErrVersionMismatch instead of silent lost updates.
func (s *PostgreSQLStorage) UpdateItemStock(ctx context.Context, item *inventory.Item) error {
	query := `
		UPDATE inventory_items
		SET in_stock = $2, on_order = $3, version = $4, updated_at = $5
		WHERE id = $1 AND version = $6`

	result, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.InStock,
		item.OnOrder,
		item.Version,
		item.UpdatedAt,
		item.Version-1,
	)

	if err != nil {
		return fmt.Errorf("failed to update item stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return inventory.ErrVersionMismatch
	}

	return nil
}

// ListItems retrieves all inventory items ordered by name
func (s *PostgreSQLStorage) ListItems(ctx context.Context) ([]inventory.Item, error) {
	query := `
		SELECT id, name, category, in_stock, on_order, reorder_point, unit, unit_price, version, created_at, updated_at
		FROM inventory_items
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var item inventory.Item
		var category string
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&category,
			&item.InStock,
			&item.OnOrder,
			&item.ReorderPoint,
			&item.Unit,
			&item.UnitPrice,
			&item.Version,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Category = inventory.ItemCategory(category)
		items = append(items, item)
	}

	return items, rows.Err()
}

// audit trail

// AppendHistory inserts a new history entry; the audit trail is append-only
func (s *PostgreSQLStorage) AppendHistory(ctx context.Context, entry *inventory.HistoryEntry) error {
	query := `
		INSERT INTO inventory_history (id, inventory_id, user_id, action, reason, previous_in_stock, new_in_stock, previous_available, new_available, change_amount, related_job_id, related_po, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.InventoryID,
		entry.UserID,
		string(entry.Action),
		entry.Reason,
		entry.PreviousInStock,
		entry.NewInStock,
		entry.PreviousAvailable,
		entry.NewAvailable,
		entry.ChangeAmount,
		entry.RelatedJobID,
		entry.RelatedPO,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// ListHistory retrieves the most recent history entries for an item
func (s *PostgreSQLStorage) ListHistory(ctx context.Context, itemID string, limit int) ([]inventory.HistoryEntry, error) {
	query := `
		SELECT id, inventory_id, user_id, action, reason, previous_in_stock, new_in_stock, previous_available, new_available, change_amount, related_job_id, related_po, created_at
		FROM inventory_history
		WHERE inventory_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []inventory.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// LastReconcileEntry retrieves the most recent reconcile_job entry for a
// job/item pair; reversal reads it to restore the quantity actually removed.
func (s *PostgreSQLStorage) LastReconcileEntry(ctx context.Context, jobID, itemID string) (*inventory.HistoryEntry, error) {
	query := `
		SELECT id, inventory_id, user_id, action, reason, previous_in_stock, new_in_stock, previous_available, new_available, change_amount, related_job_id, related_po, created_at
		FROM inventory_history
		WHERE related_job_id = $1 AND inventory_id = $2 AND action = $3
		ORDER BY created_at DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, jobID, itemID, string(inventory.ActionReconcileJob))
	entry, err := scanHistoryEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, inventory.ErrHistoryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// scanner abstracts sql.Row and sql.Rows for history mapping
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHistoryEntry(row scanner) (*inventory.HistoryEntry, error) {
	entry := &inventory.HistoryEntry{}
	var action string
	var relatedJobID, relatedPO sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.InventoryID,
		&entry.UserID,
		&action,
		&entry.Reason,
		&entry.PreviousInStock,
		&entry.NewInStock,
		&entry.PreviousAvailable,
		&entry.NewAvailable,
		&entry.ChangeAmount,
		&relatedJobID,
		&relatedPO,
		&entry.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}

	entry.Action = inventory.ActionType(action)
	if relatedJobID.Valid {
		entry.RelatedJobID = &relatedJobID.String
	}
	if relatedPO.Valid {
		entry.RelatedPO = &relatedPO.String
	}

	return entry, nil
}

// jobs

// CreateJob creates a job row and its material links
func (s *PostgreSQLStorage) CreateJob(ctx context.Context, job *jobs.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO jobs (id, name, status, reconciled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.ExecContext(ctx, query,
		job.ID,
		job.Name,
		string(job.Status),
		job.ReconciledAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return inventory.ErrDuplicateJob
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	linkQuery := `
		INSERT INTO job_materials (id, job_id, inventory_id, quantity, unit)
		VALUES ($1, $2, $3, $4, $5)`

	for _, link := range job.Materials {
		if _, err := tx.ExecContext(ctx, linkQuery, link.ID, job.ID, link.InventoryID, link.Quantity, link.Unit); err != nil {
			return fmt.Errorf("failed to create material link: %w", err)
		}
	}

	return tx.Commit()
}

// GetJob retrieves a job with its material links
func (s *PostgreSQLStorage) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	query := `
		SELECT id, name, status, reconciled_at, created_at, updated_at
		FROM jobs
		WHERE id = $1`

	job := &jobs.Job{}
	var status string
	var reconciledAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID,
		&job.Name,
		&status,
		&reconciledAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, inventory.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.Status = jobs.Status(status)
	if reconciledAt.Valid {
		job.ReconciledAt = &reconciledAt.Time
	}

	links, err := s.listMaterialLinks(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Materials = links

	return job, nil
}

// ListJobs retrieves all jobs with their material links
func (s *PostgreSQLStorage) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	query := `
		SELECT id, name, status, reconciled_at, created_at, updated_at
		FROM jobs
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobList []jobs.Job
	index := make(map[string]int)
	for rows.Next() {
		var job jobs.Job
		var status string
		var reconciledAt sql.NullTime
		err := rows.Scan(&job.ID, &job.Name, &status, &reconciledAt, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		job.Status = jobs.Status(status)
		if reconciledAt.Valid {
			job.ReconciledAt = &reconciledAt.Time
		}
		index[job.ID] = len(jobList)
		jobList = append(jobList, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linkQuery := `
		SELECT id, job_id, inventory_id, quantity, unit
		FROM job_materials`

	linkRows, err := s.db.QueryContext(ctx, linkQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list material links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var link jobs.MaterialLink
		var jobID string
		if err := linkRows.Scan(&link.ID, &jobID, &link.InventoryID, &link.Quantity, &link.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan material link: %w", err)
		}
		if i, ok := index[jobID]; ok {
			jobList[i].Materials = append(jobList[i].Materials, link)
		}
	}

	return jobList, linkRows.Err()
}

func (s *PostgreSQLStorage) listMaterialLinks(ctx context.Context, jobID string) ([]jobs.MaterialLink, error) {
	query := `
		SELECT id, inventory_id, quantity, unit
		FROM job_materials
		WHERE job_id = $1`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list material links: %w", err)
	}
	defer rows.Close()

	var links []jobs.MaterialLink
	for rows.Next() {
		var link jobs.MaterialLink
		if err := rows.Scan(&link.ID, &link.InventoryID, &link.Quantity, &link.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan material link: %w", err)
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// UpdateJobStatus persists a job's workflow status
func (s *PostgreSQLStorage) UpdateJobStatus(ctx context.Context, jobID string, status jobs.Status) error {
	query := `
		UPDATE jobs
		SET status = $2, updated_at = $3
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, jobID, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return inventory.ErrJobNotFound
	}

	return nil
}

// SetJobReconciled sets or clears a job's reconciled_at marker
func (s *PostgreSQLStorage) SetJobReconciled(ctx context.Context, jobID string, reconciledAt *time.Time) error {
	query := `
		UPDATE jobs
		SET reconciled_at = $2, updated_at = $3
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, jobID, reconciledAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set reconciled marker: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return inventory.ErrJobNotFound
	}

	return nil
}

// purchase orders

// CreateOrder creates a purchase order row
func (s *PostgreSQLStorage) CreateOrder(ctx context.Context, order *inventory.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (po_number, inventory_id, quantity, received, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		order.PONumber,
		order.InventoryID,
		order.Quantity,
		order.Received,
		string(order.Status),
		order.CreatedBy,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	return nil
}

// UpdateOrder updates a purchase order's received quantity and status
func (s *PostgreSQLStorage) UpdateOrder(ctx context.Context, order *inventory.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders
		SET received = $2, status = $3, updated_at = $4
		WHERE po_number = $1`

	result, err := s.db.ExecContext(ctx, query,
		order.PONumber,
		order.Received,
		string(order.Status),
		order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update purchase order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return inventory.ErrOrderNotFound
	}

	return nil
}

// ListOpenOrders retrieves an item's open purchase orders, oldest first
func (s *PostgreSQLStorage) ListOpenOrders(ctx context.Context, itemID string) ([]inventory.PurchaseOrder, error) {
	query := `
		SELECT po_number, inventory_id, quantity, received, status, created_by, created_at, updated_at
		FROM purchase_orders
		WHERE inventory_id = $1 AND status = $2
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, itemID, string(inventory.OrderStatusOpen))
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}
	defer rows.Close()

	var orders []inventory.PurchaseOrder
	for rows.Next() {
		var order inventory.PurchaseOrder
		var status string
		err := rows.Scan(
			&order.PONumber,
			&order.InventoryID,
			&order.Quantity,
			&order.Received,
			&status,
			&order.CreatedBy,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		order.Status = inventory.OrderStatus(status)
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// reorder alerts

// CreateAlert creates a reorder alert row
func (s *PostgreSQLStorage) CreateAlert(ctx context.Context, alert *inventory.ReorderAlert) error {
	query := `
		INSERT INTO reorder_alerts (id, inventory_id, available, reorder_point, message, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID,
		alert.InventoryID,
		alert.Available,
		alert.ReorderPoint,
		alert.Message,
		alert.IsActive,
		alert.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create reorder alert: %w", err)
	}

	return nil
}

// ActiveAlertExists reports whether an item already has an active alert
func (s *PostgreSQLStorage) ActiveAlertExists(ctx context.Context, itemID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reorder_alerts WHERE inventory_id = $1 AND is_active = true)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, itemID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active alerts: %w", err)
	}

	return exists, nil
}

// ListActiveAlerts retrieves all active reorder alerts
func (s *PostgreSQLStorage) ListActiveAlerts(ctx context.Context) ([]inventory.ReorderAlert, error) {
	query := `
		SELECT id, inventory_id, available, reorder_point, message, is_active, created_at, resolved_at
		FROM reorder_alerts
		WHERE is_active = true
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []inventory.ReorderAlert
	for rows.Next() {
		var alert inventory.ReorderAlert
		var resolvedAt sql.NullTime
		err := rows.Scan(
			&alert.ID,
			&alert.InventoryID,
			&alert.Available,
			&alert.ReorderPoint,
			&alert.Message,
			&alert.IsActive,
			&alert.CreatedAt,
			&resolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if resolvedAt.Valid {
			alert.ResolvedAt = &resolvedAt.Time
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// ResolveAlert marks an alert inactive
func (s *PostgreSQLStorage) ResolveAlert(ctx context.Context, alertID string) error {
	query := `
		UPDATE reorder_alerts
		SET is_active = false, resolved_at = $2
		WHERE id = $1 AND is_active = true`

	result, err := s.db.ExecContext(ctx, query, alertID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return inventory.ErrAlertNotFound
	}

	return nil
}

// Ping checks database connectivity
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
