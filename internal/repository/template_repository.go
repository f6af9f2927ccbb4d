package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TemplateRepository encapsulates SLA template persistence.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.SlaTemplate) error
	GetByID(ctx context.Context, id string) (*domain.SlaTemplate, error)
}

// ContractRepository reads customer contracts and their override rules.
// Contract lifecycle is owned by the surrounding system; the engine only
// reads them.
type ContractRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Contract, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates the repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

func (r *templateRepository) Create(ctx context.Context, template *domain.SlaTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTemplate = `
        INSERT INTO sla_templates (name) VALUES ($1)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTemplate, template.Name).
		Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt); err != nil {
		return err
	}

	const insertRule = `
        INSERT INTO sla_template_rules (template_id, priority, response_minutes, solution_minutes)
        VALUES ($1,$2,$3,$4)`
	for _, rule := range template.Rules {
		if _, err := tx.Exec(ctx, insertRule,
			template.ID, rule.Priority, rule.ResponseMinutes, rule.SolutionMinutes); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.SlaTemplate, error) {
	const query = `
        SELECT id, name, created_at, updated_at FROM sla_templates WHERE id=$1`
	var template domain.SlaTemplate
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&template.ID,
		&template.Name,
		&template.CreatedAt,
		&template.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rules, err := r.listRules(ctx,
		`SELECT priority, response_minutes, solution_minutes
         FROM sla_template_rules WHERE template_id=$1 ORDER BY priority`, id)
	if err != nil {
		return nil, err
	}
	template.Rules = rules
	return &template, nil
}

func (r *templateRepository) listRules(ctx context.Context, query, id string) ([]domain.SlaRule, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.SlaRule
	for rows.Next() {
		var rule domain.SlaRule
		if err := rows.Scan(&rule.Priority, &rule.ResponseMinutes, &rule.SolutionMinutes); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type contractRepository struct {
	pool *pgxpool.Pool
}

// NewContractRepository instantiates the repository.
func NewContractRepository(pool *pgxpool.Pool) ContractRepository {
	return &contractRepository{pool: pool}
}

func (r *contractRepository) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	const query = `
        SELECT id, template_id, calendar_id, created_at, updated_at
        FROM contracts WHERE id=$1`
	var contract domain.Contract
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&contract.ID,
		&contract.TemplateID,
		&contract.CalendarID,
		&contract.CreatedAt,
		&contract.UpdatedAt,
	); err != nil {
		return nil, err
	}

	const overrideQuery = `
        SELECT priority, response_minutes, solution_minutes
        FROM contract_sla_rules WHERE contract_id=$1 ORDER BY priority`
	rows, err := r.pool.Query(ctx, overrideQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rule domain.SlaRule
		if err := rows.Scan(&rule.Priority, &rule.ResponseMinutes, &rule.SolutionMinutes); err != nil {
			return nil, err
		}
		contract.Overrides = append(contract.Overrides, rule)
	}
	return &contract, rows.Err()
}
