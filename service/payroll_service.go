package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// PayrollSummary reports how a payroll run went
type PayrollSummary struct {
	Paid      int
	Failed    int
	TotalPaid int64
	FailedIDs []int64
}

type payrollService struct {
	memberService MemberService
	ingotService  IngotService
}

// NewPayrollService creates a payroll service on top of the ledger
func NewPayrollService(memberService MemberService, ingotService IngotService) PayrollService {
	return &payrollService{
		memberService: memberService,
		ingotService:  ingotService,
	}
}

// PayActiveMembers credits amount to every active member. Each credit is its
// own ledger transaction so one failure does not undo the others.
func (s *payrollService) PayActiveMembers(ctx context.Context, amount int64, reason string) (*PayrollSummary, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payroll amount must be positive, got %d", amount)
	}

	members, err := s.memberService.GetAllActiveMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}

	summary := &PayrollSummary{}
	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := s.ingotService.TryAddIngots(ctx, member.DiscordID, amount, nil, reason)
		if err != nil || !result.Status {
			entry := log.WithFields(log.Fields{
				"discordID": member.DiscordID,
				"amount":    amount,
			})
			if err != nil {
				entry = entry.WithError(err)
			} else {
				entry = entry.WithField("message", result.Message)
			}
			entry.Warn("Payroll credit failed")

			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, member.DiscordID)
			continue
		}

		summary.Paid++
		summary.TotalPaid += amount
	}

	log.WithFields(log.Fields{
		"paid":      summary.Paid,
		"failed":    summary.Failed,
		"totalPaid": summary.TotalPaid,
	}).Info("Payroll run finished")

	return summary, nil
}
