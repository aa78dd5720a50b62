package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"buildstate/internal/dto"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的ID: %s", s)
	}
	return id, nil
}

// metadataOf --meta k=v 转为请求元数据
func metadataOf(kv map[string]string) map[string]interface{} {
	if len(kv) == 0 {
		return nil
	}
	return lo.MapValues(kv, func(v string, _ string) interface{} { return v })
}

func stateName(ref *dto.StateRef) string {
	if ref == nil {
		return "-"
	}
	return fmt.Sprintf("%s(%d)", ref.Name, ref.Code)
}

func buildTable(t *table, builds ...*dto.BuildResponse) {
	t.header("ID", "PROJECT", "STATE", "STATUS", "VERSION", "START", "END")
	for _, b := range builds {
		t.row(fmt.Sprint(b.ID), fmt.Sprint(b.ProjectID), stateName(b.CurrentState), b.Status,
			fmt.Sprint(b.Version), timeStr(&b.StartTime), timeStr(b.EndTime))
	}
}

func stateTable(t *table, s *dto.BuildStateResponse) {
	t.header("BUILD", "STATE", "STATUS", "VERSION")
	t.row(fmt.Sprint(s.BuildID), stateName(s.CurrentState), s.Status, fmt.Sprint(s.Version))
	if len(s.History) == 0 {
		return
	}
	t.row()
	t.header("HISTORY", "STATE", "STATUS", "MESSAGE", "BY", "AT")
	for _, h := range s.History {
		msg := h.Message
		if h.ErrorMessage != nil {
			msg = h.ErrorMessage
		}
		t.row(fmt.Sprint(h.ID), stateName(h.State), h.Status, str(msg), h.CreatedBy, timeStr(&h.CreatedAt))
	}
}

func newBuildCmd(cx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"builds"},
		Short:   "管理构建与状态流转",
	}
	cmd.AddCommand(
		newBuildCreateCmd(cx),
		newBuildGetCmd(cx),
		newBuildStateCmd(cx),
		newBuildTransitionCmd(cx),
		newBuildFailCmd(cx),
		newBuildListCmd(cx),
	)
	return cmd
}

func newBuildCreateCmd(cx *cliContext) *cobra.Command {
	var (
		req                            dto.BuildCreateRequest
		platform, osVersion, imageType int64
		description                    string
		meta                           map[string]string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建构建, 进入项目的初始状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			if platform > 0 {
				req.PlatformID = lo.ToPtr(platform)
			}
			if osVersion > 0 {
				req.OSVersionID = lo.ToPtr(osVersion)
			}
			if imageType > 0 {
				req.ImageTypeID = lo.ToPtr(imageType)
			}
			if description != "" {
				req.Description = lo.ToPtr(description)
			}
			req.Metadata = metadataOf(meta)

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			build, err := c.CreateBuild(ctx, &req)
			if err != nil {
				return err
			}
			return render(cx, build, func(t *table) { buildTable(t, build) })
		},
	}
	cmd.Flags().Int64Var(&req.ProjectID, "project", 0, "项目ID")
	cmd.Flags().Int64Var(&platform, "platform", 0, "平台ID")
	cmd.Flags().Int64Var(&osVersion, "os-version", 0, "系统版本ID")
	cmd.Flags().Int64Var(&imageType, "image-type", 0, "镜像类型ID")
	cmd.Flags().StringVar(&description, "description", "", "描述")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "元数据 key=value")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newBuildGetCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <build-id>",
		Short: "查看构建详情",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			build, err := c.GetBuild(ctx, id)
			if err != nil {
				return err
			}
			return render(cx, build, func(t *table) { buildTable(t, build) })
		},
	}
}

func newBuildStateCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "state <build-id>",
		Short: "查看当前状态与历史",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			state, err := c.GetState(ctx, id)
			if err != nil {
				return err
			}
			return render(cx, state, func(t *table) { stateTable(t, state) })
		},
	}
}

func newBuildTransitionCmd(cx *cliContext) *cobra.Command {
	var (
		req             dto.TransitionRequest
		expectedVersion int64
		meta            map[string]string
	)
	cmd := &cobra.Command{
		Use:   "transition <build-id> <state-name>",
		Short: "将构建流转到指定状态",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req.StateName = args[1]
			req.Metadata = metadataOf(meta)
			if expectedVersion > 0 {
				req.ExpectedVersion = lo.ToPtr(expectedVersion)
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			state, err := c.Transition(ctx, id, &req)
			if err != nil {
				return err
			}
			return render(cx, state, func(t *table) { stateTable(t, state) })
		},
	}
	cmd.Flags().StringVarP(&req.Message, "message", "m", "", "流转说明")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "乐观锁版本, 不匹配时返回冲突")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "元数据 key=value")
	return cmd
}

func newBuildFailCmd(cx *cliContext) *cobra.Command {
	var (
		req             dto.FailureRequest
		errorCode       string
		expectedVersion int64
	)
	cmd := &cobra.Command{
		Use:   "fail <build-id>",
		Short: "标记构建失败",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if errorCode != "" {
				req.ErrorCode = lo.ToPtr(errorCode)
			}
			if expectedVersion > 0 {
				req.ExpectedVersion = lo.ToPtr(expectedVersion)
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			state, err := c.RecordFailure(ctx, id, &req)
			if err != nil {
				return err
			}
			return render(cx, state, func(t *table) { stateTable(t, state) })
		},
	}
	cmd.Flags().StringVarP(&req.ErrorMessage, "error", "e", "", "错误信息")
	cmd.Flags().StringVar(&errorCode, "code", "", "错误码")
	cmd.Flags().StringVarP(&req.Message, "message", "m", "", "附加说明")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "乐观锁版本")
	_ = cmd.MarkFlagRequired("error")
	return cmd
}

func newBuildListCmd(cx *cliContext) *cobra.Command {
	var (
		project        int64
		status         string
		page, pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "构建列表",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if project > 0 {
				query.Set("project_id", fmt.Sprint(project))
			}
			if status != "" {
				query.Set("status", status)
			}
			query.Set("page", fmt.Sprint(page))
			query.Set("page_size", fmt.Sprint(pageSize))

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			result, err := c.ListBuilds(ctx, query)
			if err != nil {
				return err
			}
			return render(cx, result, func(t *table) {
				buildTable(t, result.Items...)
				t.row()
				t.row(fmt.Sprintf("total %d, page %d", result.Total, result.Page))
			})
		},
	}
	cmd.Flags().Int64Var(&project, "project", 0, "按项目过滤")
	cmd.Flags().StringVar(&status, "status", "", "按状态过滤: running/completed/failed")
	cmd.Flags().IntVar(&page, "page", 1, "页码")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "每页数量")
	return cmd
}
