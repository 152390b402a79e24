package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/souq-labs/backend-souq/internal/obs"
	"github.com/souq-labs/backend-souq/internal/repo"
)

// InitialStatusSlug is the status assigned to every order at checkout.
const InitialStatusSlug = "pending"

// Queries is the data access surface the workflow engine depends on.
type Queries interface {
	GetSupplierByID(ctx context.Context, id pgtype.UUID) (repo.Supplier, error)
	GetStatusByID(ctx context.Context, id pgtype.UUID) (repo.OrderStatus, error)
	GetStatusBySlug(ctx context.Context, slug string) (repo.OrderStatus, error)
	GetStepForStatus(ctx context.Context, workflowID, statusID pgtype.UUID) (repo.WorkflowStep, error)
	GetNextStep(ctx context.Context, workflowID pgtype.UUID, afterPriority int32) (repo.WorkflowStep, error)
	ListStepsForWorkflow(ctx context.Context, workflowID pgtype.UUID) ([]repo.WorkflowStepDetail, error)
	UpdateOrderStatus(ctx context.Context, id, statusID pgtype.UUID) error
	PaymentTotalForOrder(ctx context.Context, orderID pgtype.UUID) (int64, error)
}

// Result reports the outcome of a transition attempt. Business refusals are
// not errors; the message is shown to the merchant as-is.
type Result struct {
	OK        bool
	Message   string
	NewStatus repo.OrderStatus
}

// Engine advances orders through their store's status workflow.
type Engine struct {
	Q Queries
}

func refused(message string) Result {
	incTransition("refused")
	return Result{OK: false, Message: message}
}

func incTransition(result string) {
	if obs.WorkflowTransitionsTotal != nil {
		obs.WorkflowTransitionsTotal.WithLabelValues(result).Inc()
	}
}

// MoveToNext advances the order one step forward along its store's workflow.
// Transitions are forward-only; an order sitting at a step that requires
// payment stays there until it is fully paid.
func (e *Engine) MoveToNext(ctx context.Context, order repo.Order) (Result, error) {
	if e == nil || e.Q == nil {
		return Result{}, errors.New("workflow engine not configured")
	}
	supplier, err := e.Q.GetSupplierByID(ctx, order.SupplierID)
	if err != nil {
		return Result{}, err
	}
	if !supplier.WorkflowID.Valid {
		return refused("no workflow configured for this store"), nil
	}
	if !order.StatusID.Valid {
		return refused("order has no status assigned"), nil
	}

	current, err := e.Q.GetStepForStatus(ctx, supplier.WorkflowID, order.StatusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return refused("current order status is not part of the store workflow"), nil
		}
		return Result{}, err
	}

	// The gate sits on the step the order occupies now, and is checked
	// before looking ahead, so an unpaid order at a gated final step gets
	// the payment refusal rather than the end-of-workflow one.
	if current.RequiresPayment {
		paid, err := e.Q.PaymentTotalForOrder(ctx, order.ID)
		if err != nil {
			return Result{}, err
		}
		if paid < order.TotalAmount {
			return refused(fmt.Sprintf(
				"order must be fully paid before it can move on; total amount is %d %s",
				order.TotalAmount, order.CurrencyCode)), nil
		}
	}

	next, err := e.Q.GetNextStep(ctx, supplier.WorkflowID, current.Priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return refused("order is already at the final status"), nil
		}
		return Result{}, err
	}

	nextStatus, err := e.Q.GetStatusByID(ctx, next.StatusID)
	if err != nil {
		return Result{}, err
	}

	if err := e.Q.UpdateOrderStatus(ctx, order.ID, next.StatusID); err != nil {
		return Result{}, err
	}
	incTransition("advanced")
	return Result{
		OK:        true,
		Message:   fmt.Sprintf("order status updated to: %s", nextStatus.Name),
		NewStatus: nextStatus,
	}, nil
}

// Override sets the order status directly, bypassing ordering and payment
// gates. Reserved for administrative correction.
func (e *Engine) Override(ctx context.Context, order repo.Order, statusID pgtype.UUID) (Result, error) {
	if e == nil || e.Q == nil {
		return Result{}, errors.New("workflow engine not configured")
	}
	status, err := e.Q.GetStatusByID(ctx, statusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return refused("unknown order status"), nil
		}
		return Result{}, err
	}
	if err := e.Q.UpdateOrderStatus(ctx, order.ID, status.ID); err != nil {
		return Result{}, err
	}
	incTransition("overridden")
	return Result{
		OK:        true,
		Message:   fmt.Sprintf("order status updated to: %s", status.Name),
		NewStatus: status,
	}, nil
}

// Steps returns the store's workflow steps in execution order.
func (e *Engine) Steps(ctx context.Context, supplierID pgtype.UUID) ([]repo.WorkflowStepDetail, error) {
	if e == nil || e.Q == nil {
		return nil, errors.New("workflow engine not configured")
	}
	supplier, err := e.Q.GetSupplierByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.WorkflowID.Valid {
		return nil, nil
	}
	return e.Q.ListStepsForWorkflow(ctx, supplier.WorkflowID)
}
