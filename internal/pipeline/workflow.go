package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage is one approval step of a Workflow.
type Stage struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Approvers    []string `json:"approvers"`
	Type         string   `json:"type"`
	Requires     string   `json:"requires"`
	TimeoutHours float64  `json:"timeout_hours"`
}

// Notifications toggles workflow event notices.
type Notifications struct {
	OnSubmit    bool `json:"on_submit"`
	OnApproval  bool `json:"on_approval"`
	OnRejection bool `json:"on_rejection"`
}

// Workflow is the approval chain proposed for a report.
type Workflow struct {
	Name          string        `json:"name"`
	Stages        []Stage       `json:"stages"`
	Notifications Notifications `json:"notifications"`
	Reason        string        `json:"reason"`
	CreatedAt     time.Time     `json:"created_at"`
	Status        string        `json:"status"`
}

// WorkflowPending is the status of every freshly built workflow.
const WorkflowPending = "pending"

var errNoStages = errors.New("workflow has no stages")

// DefaultWorkflow is substituted when the workflow step fails.
func DefaultWorkflow(now time.Time) Workflow {
	return Workflow{
		Name: "Standard Approval Workflow",
		Stages: []Stage{{
			ID:           "stage_1",
			Name:         "Manager Review",
			Approvers:    []string{"Manager"},
			Type:         "sequential",
			Requires:     "single",
			TimeoutHours: 24,
		}},
		Notifications: Notifications{OnSubmit: true, OnApproval: true, OnRejection: true},
		Reason:        "Default workflow",
		CreatedAt:     now,
		Status:        WorkflowPending,
	}
}

func workflowPrompt(req ParsedRequest) string {
	or := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}
	var b strings.Builder
	b.WriteString("Design an appropriate approval workflow for this request:\n\n")
	fmt.Fprintf(&b, "Report Type: %s\n", or(req.ReportType, "custom"))
	fmt.Fprintf(&b, "Report Focus: %s\n", or(req.ReportFocus, "General"))
	fmt.Fprintf(&b, "Requestor: %s (%s)\n", or(req.Requestor, "User"), or(req.UserRole, "Unknown"))
	fmt.Fprintf(&b, "Department: %s\n", or(req.Department, "General"))
	fmt.Fprintf(&b, "Urgency: %s\n", or(req.Urgency, "normal"))
	fmt.Fprintf(&b, "Value Impact: %s\n\n", or(req.ValueImpact, "medium"))
	b.WriteString(`Rules:
- Sales reports: Manager -> Director
- Financial reports: Manager -> Finance Head -> CFO
- Executive reports: Director -> VP -> C-Level
- Simple reports: Single manager approval
- High urgency: Parallel approvals where possible
- High value: Additional stakeholder reviews

Return ONLY valid JSON:
{
  "name": "workflow name",
  "stages": [
    {
      "id": "stage_1",
      "name": "stage name",
      "approvers": ["role"],
      "type": "sequential|parallel",
      "requires": "single|any_one|all",
      "timeout_hours": 24
    }
  ],
  "notifications": {
    "on_submit": true,
    "on_approval": true,
    "on_rejection": true
  },
  "reason": "Brief explanation"
}`)
	return b.String()
}

func decodeWorkflow(text string) (Workflow, error) {
	// created_at and status are stamped locally; ignore whatever the model sent.
	var raw struct {
		Name          string        `json:"name"`
		Stages        []Stage       `json:"stages"`
		Notifications Notifications `json:"notifications"`
		Reason        string        `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return Workflow{}, fmt.Errorf("decode workflow: %w", err)
	}
	if len(raw.Stages) == 0 {
		return Workflow{}, errNoStages
	}
	return Workflow{
		Name:          raw.Name,
		Stages:        raw.Stages,
		Notifications: raw.Notifications,
		Reason:        raw.Reason,
	}, nil
}

func (p *Pipeline) buildWorkflow(ctx context.Context, req ParsedRequest, res *Result) Workflow {
	text, err := p.complete(ctx, workflowPrompt(req))
	var wf Workflow
	if err == nil {
		wf, err = decodeWorkflow(text)
	}
	if err != nil {
		se := &StepError{Step: StepWorkflow, Err: err}
		p.log.Warn("%v", se)
		res.fallback(se)
		return DefaultWorkflow(p.now())
	}
	wf.CreatedAt = p.now()
	wf.Status = WorkflowPending
	return wf
}
