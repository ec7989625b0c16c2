package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service owns the recovery-day ledger: converting approved overtime hours
// into blocks of rest days, cancelling those blocks, and expiring them after
// their date range passes. Hours move between the two ledgers but are never
// created or destroyed.
type Service struct {
	tx           Transactor
	recoveryRepo recovery.Repository
	overtimeRepo overtime.Repository
	employeeRepo employee.Repository
	logger       *slog.Logger

	now func() time.Time
}

func NewService(
	tx Transactor,
	recoveryRepo recovery.Repository,
	overtimeRepo overtime.Repository,
	employeeRepo employee.Repository,
	logger *slog.Logger,
) *Service {
	return &Service{
		tx:           tx,
		recoveryRepo: recoveryRepo,
		overtimeRepo: overtimeRepo,
		employeeRepo: employeeRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// hoursPerDay resolves how many overtime hours one recovery day costs.
func hoursPerDay(set tenant.Settings) decimal.Decimal {
	daily := set.DailyWorkingHours
	if !daily.IsPositive() {
		daily = decimal.NewFromInt(8)
	}
	rate := set.ConversionRate
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	return daily.Div(rate)
}

// restrictToSelection narrows the convertible entries to the requested IDs,
// keeping the oldest-first order. Every requested ID must be convertible.
func restrictToSelection(entries []overtime.Entry, ids []string) ([]overtime.Entry, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}

	var out []overtime.Entry
	for _, e := range entries {
		if want[e.ID] {
			out = append(out, e)
			delete(want, e.ID)
		}
	}
	if len(want) > 0 {
		return nil, recovery.ErrEntryNotConvertible
	}
	return out, nil
}

// Convert funds a block of recovery days from the employee's approved
// overtime, consuming entries oldest work date first. The grant and every
// ledger mutation commit in one transaction.
func (s *Service) Convert(ctx context.Context, tn tenant.Tenant, req recovery.ConvertRequest, actorCanApprove bool) (recovery.Grant, error) {
	if err := req.Validate(); err != nil {
		return recovery.Grant{}, err
	}
	start, end := req.Period()

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, tn.ID)
	if err != nil {
		return recovery.Grant{}, err
	}

	needed := decimal.NewFromInt(int64(req.Days)).Mul(hoursPerDay(tn.Settings))

	status := recovery.GrantPending
	if actorCanApprove || end.Before(today(s.now(), tn.Location())) {
		// Backdated grants document rest already taken; nothing to approve.
		status = recovery.GrantApproved
	}

	grant := recovery.Grant{
		TenantID:      tn.ID,
		EmployeeID:    emp.ID,
		StartDate:     start,
		EndDate:       end,
		Days:          req.Days,
		SourceHours:   needed,
		Status:        status,
		Justification: req.Justification,
	}

	// The availability check and the debit have to see the same rows, so the
	// listing happens inside the transaction where it locks them.
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		entries, err := s.overtimeRepo.ListConvertibleByEmployee(txCtx, tn.ID, emp.ID)
		if err != nil {
			return fmt.Errorf("failed to list convertible overtime: %w", err)
		}
		if len(req.OvertimeEntryIDs) > 0 {
			entries, err = restrictToSelection(entries, req.OvertimeEntryIDs)
			if err != nil {
				return err
			}
		}

		available := decimal.Zero
		for _, e := range entries {
			available = available.Add(e.AvailableHours())
		}
		if available.LessThan(needed) {
			return recovery.ErrNotEnoughAvailableHours
		}

		created, err := s.recoveryRepo.CreateGrant(txCtx, grant)
		if err != nil {
			return fmt.Errorf("failed to create recovery grant: %w", err)
		}
		grant = created

		remaining := needed
		for _, entry := range entries {
			if !remaining.IsPositive() {
				break
			}

			take := entry.AvailableHours()
			if take.GreaterThan(remaining) {
				take = remaining
			}

			if _, err := s.recoveryRepo.CreateLink(txCtx, recovery.Link{
				OvertimeID:    entry.ID,
				RecoveryDayID: grant.ID,
				HoursUsed:     take,
			}); err != nil {
				return fmt.Errorf("failed to link overtime entry %s: %w", entry.ID, err)
			}

			entry.ConvertedToRecoveryDays = entry.ConvertedToRecoveryDays.Add(take)
			if !entry.AvailableHours().IsPositive() {
				// Fully consumed: no longer payable.
				entry.Status = overtime.StatusRecovered
			}
			if err := s.overtimeRepo.Update(txCtx, entry); err != nil {
				return fmt.Errorf("failed to debit overtime entry %s: %w", entry.ID, err)
			}

			remaining = remaining.Sub(take)
		}

		return nil
	})
	if err != nil {
		return recovery.Grant{}, err
	}

	s.logger.Info("recovery days granted",
		slog.String("tenant_id", tn.ID),
		slog.String("employee_id", emp.ID),
		slog.String("grant_id", grant.ID),
		slog.Int("days", grant.Days),
		slog.String("source_hours", grant.SourceHours.String()),
		slog.String("status", string(grant.Status)),
	)

	return grant, nil
}

// Cancel reverses recovery-day grants and restores the exact hours they
// consumed. Because one overtime entry can fund several grants, the requested
// set is expanded to the full closure of grants sharing a funding entry; all
// of them cancel together or not at all.
func (s *Service) Cancel(ctx context.Context, tn tenant.Tenant, req recovery.CancelRequest) ([]recovery.Grant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var justification *string
	if req.Justification != "" {
		justification = &req.Justification
	}

	// Closure walk, guards and restore all run on the same transaction so a
	// concurrent conversion cannot slip a new link in between them.
	var grants []recovery.Grant
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		grantIDs, overtimeIDs, err := s.closure(txCtx, tn.ID, req.GrantIDs)
		if err != nil {
			return err
		}

		grants, err = s.recoveryRepo.ListGrantsByIDs(txCtx, tn.ID, grantIDs)
		if err != nil {
			return fmt.Errorf("failed to load grants: %w", err)
		}
		if len(grants) != len(grantIDs) {
			return recovery.ErrGrantNotFound
		}

		needsJustification := false
		for _, g := range grants {
			if g.Status == recovery.GrantUsed {
				return recovery.ErrGrantAlreadyUsed
			}
			if g.StartDate.Before(today(s.now(), tn.Location())) {
				needsJustification = true
			}
		}
		if needsJustification && len(strings.TrimSpace(req.Justification)) < 10 {
			return recovery.ErrJustificationRequired
		}

		links, err := s.recoveryRepo.ListLinksByGrants(txCtx, grantIDs)
		if err != nil {
			return fmt.Errorf("failed to load grant links: %w", err)
		}

		restore := map[string]decimal.Decimal{}
		for _, l := range links {
			restore[l.OvertimeID] = restore[l.OvertimeID].Add(l.HoursUsed)
		}

		entries, err := s.overtimeRepo.ListByIDs(txCtx, tn.ID, overtimeIDs)
		if err != nil {
			return fmt.Errorf("failed to load funding overtime entries: %w", err)
		}

		for _, entry := range entries {
			entry.ConvertedToRecoveryDays = entry.ConvertedToRecoveryDays.Sub(restore[entry.ID])
			if entry.Status == overtime.StatusRecovered {
				// The hours are payable again.
				entry.Status = overtime.StatusApproved
			}
			if err := s.overtimeRepo.Update(txCtx, entry); err != nil {
				return fmt.Errorf("failed to restore overtime entry %s: %w", entry.ID, err)
			}
		}

		if err := s.recoveryRepo.DeleteLinksByGrants(txCtx, grantIDs); err != nil {
			return fmt.Errorf("failed to delete grant links: %w", err)
		}

		for _, g := range grants {
			if err := s.recoveryRepo.UpdateGrantStatus(txCtx, g.ID, tn.ID, recovery.GrantCancelled, justification); err != nil {
				return fmt.Errorf("failed to cancel grant %s: %w", g.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range grants {
		grants[i].Status = recovery.GrantCancelled
	}

	s.logger.Info("recovery days cancelled",
		slog.String("tenant_id", tn.ID),
		slog.Int("grants", len(grants)),
	)

	return grants, nil
}

// closure expands the requested grant IDs across shared funding entries until
// the set is stable, and returns the involved overtime entry IDs alongside.
func (s *Service) closure(ctx context.Context, tenantID string, seed []string) ([]string, []string, error) {
	grantSet := map[string]bool{}
	overtimeSet := map[string]bool{}

	pending := append([]string(nil), seed...)
	for _, id := range pending {
		grantSet[id] = true
	}

	for len(pending) > 0 {
		links, err := s.recoveryRepo.ListLinksByGrants(ctx, pending)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to walk grant links: %w", err)
		}
		pending = nil

		for _, l := range links {
			if overtimeSet[l.OvertimeID] {
				continue
			}
			overtimeSet[l.OvertimeID] = true

			siblings, err := s.recoveryRepo.ListLinksByOvertime(ctx, l.OvertimeID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to walk overtime links: %w", err)
			}
			for _, sib := range siblings {
				if !grantSet[sib.RecoveryDayID] {
					grantSet[sib.RecoveryDayID] = true
					pending = append(pending, sib.RecoveryDayID)
				}
			}
		}
	}

	grantIDs := make([]string, 0, len(grantSet))
	for id := range grantSet {
		grantIDs = append(grantIDs, id)
	}
	overtimeIDs := make([]string, 0, len(overtimeSet))
	for id := range overtimeSet {
		overtimeIDs = append(overtimeIDs, id)
	}
	return grantIDs, overtimeIDs, nil
}

// ExpireDaily settles grants whose date range has fully passed: APPROVED
// grants become USED, never-approved PENDING grants cancel and give their
// hours back.
func (s *Service) ExpireDaily(ctx context.Context, tn tenant.Tenant) error {
	day := today(s.now(), tn.Location())

	approved, err := s.recoveryRepo.ListGrantsEndedBefore(ctx, tn.ID, recovery.GrantApproved, day)
	if err != nil {
		return fmt.Errorf("failed to list expired approved grants: %w", err)
	}
	for _, g := range approved {
		if err := s.recoveryRepo.UpdateGrantStatus(ctx, g.ID, tn.ID, recovery.GrantUsed, nil); err != nil {
			return fmt.Errorf("failed to mark grant %s used: %w", g.ID, err)
		}
		s.logger.Info("recovery grant used",
			slog.String("tenant_id", tn.ID),
			slog.String("grant_id", g.ID),
			slog.String("employee_id", g.EmployeeID),
		)
	}

	stale, err := s.recoveryRepo.ListGrantsEndedBefore(ctx, tn.ID, recovery.GrantPending, day)
	if err != nil {
		return fmt.Errorf("failed to list expired pending grants: %w", err)
	}
	for _, g := range stale {
		reason := "expired without approval"
		if err := s.expirePending(ctx, tn, g, reason); err != nil {
			s.logger.Error("failed to expire pending grant",
				slog.String("tenant_id", tn.ID),
				slog.String("grant_id", g.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

func (s *Service) expirePending(ctx context.Context, tn tenant.Tenant, g recovery.Grant, reason string) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		links, err := s.recoveryRepo.ListLinksByGrants(txCtx, []string{g.ID})
		if err != nil {
			return fmt.Errorf("failed to load grant links: %w", err)
		}

		restore := map[string]decimal.Decimal{}
		ids := make([]string, 0, len(links))
		for _, l := range links {
			if _, ok := restore[l.OvertimeID]; !ok {
				ids = append(ids, l.OvertimeID)
			}
			restore[l.OvertimeID] = restore[l.OvertimeID].Add(l.HoursUsed)
		}

		entries, err := s.overtimeRepo.ListByIDs(txCtx, tn.ID, ids)
		if err != nil {
			return fmt.Errorf("failed to load funding overtime entries: %w", err)
		}

		for _, entry := range entries {
			entry.ConvertedToRecoveryDays = entry.ConvertedToRecoveryDays.Sub(restore[entry.ID])
			if entry.Status == overtime.StatusRecovered {
				entry.Status = overtime.StatusApproved
			}
			if err := s.overtimeRepo.Update(txCtx, entry); err != nil {
				return fmt.Errorf("failed to restore overtime entry %s: %w", entry.ID, err)
			}
		}

		if err := s.recoveryRepo.DeleteLinksByGrants(txCtx, []string{g.ID}); err != nil {
			return fmt.Errorf("failed to delete grant links: %w", err)
		}

		if err := s.recoveryRepo.UpdateGrantStatus(txCtx, g.ID, tn.ID, recovery.GrantCancelled, &reason); err != nil {
			return fmt.Errorf("failed to cancel grant: %w", err)
		}
		return nil
	})
}

func today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
