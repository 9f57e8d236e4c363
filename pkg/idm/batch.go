package idm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedResourceType  = errors.New("unsupported resource type")
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidBatchData         = errors.New("invalid data for batch operation")
	ErrTransactionFailed        = errors.New("transaction failed")
)

// OperationType is what a BatchOperation does.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationGet    OperationType = "get"
	OperationDelete OperationType = "delete"
)

// ResourceType is what a BatchOperation acts on.
type ResourceType string

const (
	ResourceTenant ResourceType = "tenant"
	ResourceUser   ResourceType = "user"
)

const (
	defaultBatchConcurrency = 5
	defaultBatchTimeout     = 60 * time.Second
)

// BatchOperation represents a single operation in a batch.
//
// Data is a *TenantCreateRequest or *UserCreateRequest for creates, and the
// resource ID as a string for gets and deletes.
type BatchOperation struct {
	ID       string
	Type     OperationType
	Resource ResourceType
	Data     interface{}
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation. Data holds the
// *Tenant or *User returned by creates and gets.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor runs operations concurrently against a Client.
type BatchExecutor struct {
	client      Client
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor running at most concurrency
// operations at a time.
func NewBatchExecutor(client Client, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     defaultBatchTimeout,
	}
}

// SetTimeout bounds each operation.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are in operation order; a
// failed operation does not stop the others. The error is non-nil only when
// ctx ends before every operation has started.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	group := new(errgroup.Group)
	group.SetLimit(b.concurrency)

	for index, operation := range operations {
		if ctx.Err() != nil {
			for i := index; i < len(operations); i++ {
				results[i] = BatchResult{ID: operations[i].ID, Error: TransportError(ctx.Err())}
			}

			break
		}

		group.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}

			return nil
		})
	}

	_ = group.Wait()

	err := ctx.Err()
	if err != nil {
		return results, TransportError(err)
	}

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	var (
		data interface{}
		err  error
	)

	switch operation.Resource {
	case ResourceTenant:
		data, err = b.executeTenantOperation(ctx, operation)
	case ResourceUser:
		data, err = b.executeUserOperation(ctx, operation)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedResourceType, operation.Resource)
	}

	if err != nil {
		data = nil
	}

	return &BatchResult{
		ID:      operation.ID,
		Success: err == nil,
		Data:    data,
		Error:   err,
	}
}

func (b *BatchExecutor) executeTenantOperation(ctx context.Context, operation BatchOperation) (interface{}, error) {
	tenants := b.client.Tenants()

	switch operation.Type {
	case OperationCreate:
		req, ok := operation.Data.(*TenantCreateRequest)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s needs *TenantCreateRequest", ErrInvalidBatchData, operation.Type, operation.Resource)
		}

		return tenants.Create(ctx, req)
	case OperationGet:
		id, err := operationID(operation)
		if err != nil {
			return nil, err
		}

		return tenants.Get(ctx, id)
	case OperationDelete:
		id, err := operationID(operation)
		if err != nil {
			return nil, err
		}

		return nil, tenants.Delete(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}
}

func (b *BatchExecutor) executeUserOperation(ctx context.Context, operation BatchOperation) (interface{}, error) {
	users := b.client.Users()

	switch operation.Type {
	case OperationCreate:
		req, ok := operation.Data.(*UserCreateRequest)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s needs *UserCreateRequest", ErrInvalidBatchData, operation.Type, operation.Resource)
		}

		return users.Create(ctx, req)
	case OperationGet:
		id, err := operationID(operation)
		if err != nil {
			return nil, err
		}

		return users.Get(ctx, id)
	case OperationDelete:
		id, err := operationID(operation)
		if err != nil {
			return nil, err
		}

		return nil, users.Delete(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}
}

func operationID(operation BatchOperation) (string, error) {
	id, ok := operation.Data.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s %s needs an ID string", ErrInvalidBatchData, operation.Type, operation.Resource)
	}

	return id, nil
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{}
}

// AddCreateTenant adds a tenant creation.
func (b *BatchBuilder) AddCreateTenant(id string, request *TenantCreateRequest) *BatchBuilder {
	return b.add(id, OperationCreate, ResourceTenant, request)
}

// AddGetTenant adds a tenant lookup.
func (b *BatchBuilder) AddGetTenant(id, tenantID string) *BatchBuilder {
	return b.add(id, OperationGet, ResourceTenant, tenantID)
}

// AddDeleteTenant adds a tenant deletion.
func (b *BatchBuilder) AddDeleteTenant(id, tenantID string) *BatchBuilder {
	return b.add(id, OperationDelete, ResourceTenant, tenantID)
}

// AddCreateUser adds a user creation.
func (b *BatchBuilder) AddCreateUser(id string, request *UserCreateRequest) *BatchBuilder {
	return b.add(id, OperationCreate, ResourceUser, request)
}

// AddGetUser adds a user lookup.
func (b *BatchBuilder) AddGetUser(id, userID string) *BatchBuilder {
	return b.add(id, OperationGet, ResourceUser, userID)
}

// AddDeleteUser adds a user deletion.
func (b *BatchBuilder) AddDeleteUser(id, userID string) *BatchBuilder {
	return b.add(id, OperationDelete, ResourceUser, userID)
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}

func (b *BatchBuilder) add(id string, typ OperationType, resource ResourceType, data interface{}) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID:       id,
		Type:     typ,
		Resource: resource,
		Data:     data,
	})
}

// BatchTransaction runs a batch and, if any operation fails, deletes what
// the batch created. Deletions cannot be undone and are left as they are.
type BatchTransaction struct {
	operations []BatchOperation
	executor   *BatchExecutor
	rollback   bool
}

// NewBatchTransaction creates a new batch transaction with rollback enabled.
func NewBatchTransaction(executor *BatchExecutor) *BatchTransaction {
	return &BatchTransaction{
		executor: executor,
		rollback: true,
	}
}

// Add adds an operation to the transaction.
func (t *BatchTransaction) Add(operation BatchOperation) *BatchTransaction {
	t.operations = append(t.operations, operation)

	return t
}

// SetRollback sets whether to rollback on failure.
func (t *BatchTransaction) SetRollback(rollback bool) *BatchTransaction {
	t.rollback = rollback

	return t
}

// Execute executes the transaction. On failure the returned error wraps
// ErrTransactionFailed and, when rollback is enabled, created resources have
// been deleted: users first, then tenants.
func (t *BatchTransaction) Execute(ctx context.Context) ([]BatchResult, error) {
	results, err := t.executor.Execute(ctx, t.operations)

	var failedOps []string

	for _, result := range results {
		if !result.Success {
			failedOps = append(failedOps, result.ID)
		}
	}

	if len(failedOps) == 0 {
		return results, err
	}

	if t.rollback {
		rollbackErr := t.performRollback(ctx, results)
		if rollbackErr != nil {
			return results, fmt.Errorf("%w, %d operations failed: %v; rollback: %w",
				ErrTransactionFailed, len(failedOps), failedOps, rollbackErr)
		}
	}

	return results, fmt.Errorf("%w, %d operations failed: %v", ErrTransactionFailed, len(failedOps), failedOps)
}

func (t *BatchTransaction) performRollback(ctx context.Context, results []BatchResult) error {
	var users, tenants []BatchOperation

	for _, result := range results {
		if !result.Success || !isCreate(t.operations, result.ID) {
			continue
		}

		switch created := result.Data.(type) {
		case *User:
			if created != nil {
				users = append(users, BatchOperation{
					ID: "rollback_" + result.ID, Type: OperationDelete, Resource: ResourceUser, Data: created.ID.String(),
				})
			}
		case *Tenant:
			if created != nil {
				tenants = append(tenants, BatchOperation{
					ID: "rollback_" + result.ID, Type: OperationDelete, Resource: ResourceTenant, Data: created.ID.String(),
				})
			}
		}
	}

	// users are bound to tenants, so they go first
	var errs []error

	for _, ops := range [][]BatchOperation{users, tenants} {
		if len(ops) == 0 {
			continue
		}

		rolled, err := t.executor.Execute(ctx, ops)
		if err != nil {
			return err
		}

		for _, r := range rolled {
			if r.Error != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.ID, r.Error))
			}
		}
	}

	return errors.Join(errs...)
}

func isCreate(operations []BatchOperation, id string) bool {
	for _, op := range operations {
		if op.ID == id {
			return op.Type == OperationCreate
		}
	}

	return false
}
