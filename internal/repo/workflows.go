package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// GetStatusBySlug loads a shared order status by its slug.
func (s *Store) GetStatusBySlug(ctx context.Context, slug string) (OrderStatus, error) {
	var st OrderStatus
	err := s.db.QueryRow(ctx,
		`SELECT id, name, slug, description, is_terminal
		 FROM order_statuses WHERE slug = $1`, slug).
		Scan(&st.ID, &st.Name, &st.Slug, &st.Description, &st.IsTerminal)
	return st, err
}

// GetStatusByID loads a shared order status by primary key.
func (s *Store) GetStatusByID(ctx context.Context, id pgtype.UUID) (OrderStatus, error) {
	var st OrderStatus
	err := s.db.QueryRow(ctx,
		`SELECT id, name, slug, description, is_terminal
		 FROM order_statuses WHERE id = $1`, id).
		Scan(&st.ID, &st.Name, &st.Slug, &st.Description, &st.IsTerminal)
	return st, err
}

// GetStepForStatus resolves the workflow step bound to a status within a
// workflow. (workflow, status) is unique so at most one row matches.
func (s *Store) GetStepForStatus(ctx context.Context, workflowID, statusID pgtype.UUID) (WorkflowStep, error) {
	var st WorkflowStep
	err := s.db.QueryRow(ctx,
		`SELECT id, workflow_id, status_id, priority, requires_payment
		 FROM workflow_steps WHERE workflow_id = $1 AND status_id = $2`, workflowID, statusID).
		Scan(&st.ID, &st.WorkflowID, &st.StatusID, &st.Priority, &st.RequiresPayment)
	return st, err
}

// GetNextStep returns the step with the smallest priority strictly greater
// than the given one within the workflow.
func (s *Store) GetNextStep(ctx context.Context, workflowID pgtype.UUID, afterPriority int32) (WorkflowStep, error) {
	var st WorkflowStep
	err := s.db.QueryRow(ctx,
		`SELECT id, workflow_id, status_id, priority, requires_payment
		 FROM workflow_steps
		 WHERE workflow_id = $1 AND priority > $2
		 ORDER BY priority ASC LIMIT 1`, workflowID, afterPriority).
		Scan(&st.ID, &st.WorkflowID, &st.StatusID, &st.Priority, &st.RequiresPayment)
	return st, err
}

// ListStepsForWorkflow returns the workflow steps with their statuses in
// priority order.
func (s *Store) ListStepsForWorkflow(ctx context.Context, workflowID pgtype.UUID) ([]WorkflowStepDetail, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ws.id, ws.workflow_id, ws.status_id, ws.priority, ws.requires_payment, os.name, os.slug
		 FROM workflow_steps ws
		 JOIN order_statuses os ON os.id = ws.status_id
		 WHERE ws.workflow_id = $1
		 ORDER BY ws.priority ASC`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WorkflowStepDetail
	for rows.Next() {
		var d WorkflowStepDetail
		if err := rows.Scan(&d.ID, &d.WorkflowID, &d.StatusID, &d.Priority,
			&d.RequiresPayment, &d.StatusName, &d.StatusSlug); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateStatus inserts a shared order status definition.
func (s *Store) CreateStatus(ctx context.Context, name, slug, description string, terminal bool) (OrderStatus, error) {
	var st OrderStatus
	err := s.db.QueryRow(ctx,
		`INSERT INTO order_statuses (name, slug, description, is_terminal)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, slug, description, is_terminal`,
		name, slug, Text(description), terminal).
		Scan(&st.ID, &st.Name, &st.Slug, &st.Description, &st.IsTerminal)
	return st, err
}

// CreateWorkflow inserts a workflow definition.
func (s *Store) CreateWorkflow(ctx context.Context, name string, isDefault bool) (OrderWorkflow, error) {
	var wf OrderWorkflow
	err := s.db.QueryRow(ctx,
		`INSERT INTO order_workflows (name, is_default) VALUES ($1, $2)
		 RETURNING id, name, is_default`, name, isDefault).
		Scan(&wf.ID, &wf.Name, &wf.IsDefault)
	return wf, err
}

// CreateWorkflowStep binds a status to a workflow at a priority.
func (s *Store) CreateWorkflowStep(ctx context.Context, workflowID, statusID pgtype.UUID, priority int32, requiresPayment bool) (WorkflowStep, error) {
	var st WorkflowStep
	err := s.db.QueryRow(ctx,
		`INSERT INTO workflow_steps (workflow_id, status_id, priority, requires_payment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, workflow_id, status_id, priority, requires_payment`,
		workflowID, statusID, priority, requiresPayment).
		Scan(&st.ID, &st.WorkflowID, &st.StatusID, &st.Priority, &st.RequiresPayment)
	return st, err
}
