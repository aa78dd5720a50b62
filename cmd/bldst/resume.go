package main

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"buildstate/internal/core/resume"
	"buildstate/internal/dto"
	"buildstate/internal/model"
)

func refName(ref *resume.StateRef) string {
	if ref == nil {
		return "-"
	}
	return fmt.Sprintf("%s(%d)", ref.Name, ref.Code)
}

func resumeRequestTable(t *table, requests ...*model.ResumeRequest) {
	t.header("ID", "BUILD", "FROM", "TO", "STATUS", "JOB", "BY", "CREATED")
	for _, r := range requests {
		t.row(fmt.Sprint(r.ID), fmt.Sprint(r.BuildID), fmt.Sprint(r.ResumeFromState), intStr(r.ResumeToState),
			r.OrchestrationStatus, str(r.OrchestrationJobID), r.RequestedBy, timeStr(&r.CreatedAt))
	}
}

func newResumeCmd(cx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "恢复上下文与恢复请求",
	}
	cmd.AddCommand(
		newResumeContextCmd(cx),
		newResumeRequestCmd(cx),
		newResumeListCmd(cx),
		newResumeUpdateCmd(cx),
	)
	return cmd
}

func newResumeContextCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "context <build-id>",
		Short: "查看构建的恢复上下文",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			rc, err := c.ResumeContext(ctx, buildID)
			if err != nil {
				return err
			}
			return render(cx, rc, func(t *table) {
				t.header("FIELD", "VALUE")
				t.row("build", fmt.Sprint(rc.BuildID))
				t.row("status", rc.Status)
				t.row("current_state", refName(rc.CurrentState))
				t.row("last_successful_state", refName(rc.LastSuccessfulState))
				t.row("failed_state", refName(rc.FailedState))
				t.row("resume_from_state", refName(rc.ResumeFromState))
				if cfg := rc.ResumableStateConfig; cfg != nil {
					t.row("resume_strategy", cfg.ResumeStrategy)
					t.row("resume_command", str(cfg.ResumeCommand))
				}
				t.row("artifacts", fmt.Sprint(len(rc.Artifacts)))
				keys := lo.Keys(rc.Variables)
				sort.Strings(keys)
				for _, k := range keys {
					t.row("var."+k, rc.Variables[k])
				}
			})
		},
	}
}

func newResumeRequestCmd(cx *cliContext) *cobra.Command {
	var (
		from, to       int
		reason, source string
	)
	cmd := &cobra.Command{
		Use:   "request <build-id>",
		Short: "发起恢复请求",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			req := &dto.ResumeRequestCreateRequest{
				ResumeFromState: lo.ToPtr(from),
				ResumeReason:    lo.EmptyableToPtr(reason),
				RequestSource:   lo.EmptyableToPtr(source),
			}
			if cmd.Flags().Changed("to") {
				req.ResumeToState = lo.ToPtr(to)
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			r, err := c.RequestResume(ctx, buildID, req)
			if err != nil {
				return err
			}
			return render(cx, r, func(t *table) { resumeRequestTable(t, r) })
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "从该数值状态恢复")
	cmd.Flags().IntVar(&to, "to", 0, "恢复到该数值状态, 必须大于 --from")
	cmd.Flags().StringVar(&reason, "reason", "", "恢复原因")
	cmd.Flags().StringVar(&source, "source", "manual", "请求来源: manual/api/auto_retry/orchestrator")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newResumeListCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <build-id>",
		Short: "构建的恢复请求",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			list, err := c.ListResumeRequests(ctx, buildID)
			if err != nil {
				return err
			}
			return render(cx, list, func(t *table) { resumeRequestTable(t, list...) })
		},
	}
}

func newResumeUpdateCmd(cx *cliContext) *cobra.Command {
	var status, jobID, jobURL, errorMessage string
	cmd := &cobra.Command{
		Use:   "update <request-id>",
		Short: "回写编排状态",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req := &dto.ResumeRequestUpdateRequest{
				OrchestrationStatus: lo.EmptyableToPtr(status),
				OrchestrationJobID:  lo.EmptyableToPtr(jobID),
				OrchestrationJobURL: lo.EmptyableToPtr(jobURL),
				ErrorMessage:        lo.EmptyableToPtr(errorMessage),
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			r, err := c.UpdateResumeRequest(ctx, id, req)
			if err != nil {
				return err
			}
			return render(cx, r, func(t *table) { resumeRequestTable(t, r) })
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "编排状态: pending/triggered/running/completed/failed")
	cmd.Flags().StringVar(&jobID, "job-id", "", "编排任务ID")
	cmd.Flags().StringVar(&jobURL, "job-url", "", "编排任务链接")
	cmd.Flags().StringVar(&errorMessage, "error", "", "错误信息")
	return cmd
}
