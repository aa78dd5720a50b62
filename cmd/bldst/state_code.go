package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"buildstate/internal/dto"
	"buildstate/internal/model"
)

func stateCodeTable(t *table, codes ...*model.StateCode) {
	t.header("ID", "NAME", "CODE", "INITIAL", "FINAL", "ERROR", "ACTIVE")
	for _, sc := range codes {
		t.row(fmt.Sprint(sc.ID), sc.Name, fmt.Sprint(sc.Code), fmt.Sprint(sc.IsInitial),
			fmt.Sprint(sc.IsFinal), fmt.Sprint(sc.IsError), fmt.Sprint(sc.IsActive()))
	}
}

func newStateCodeCmd(cx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "state-code",
		Aliases: []string{"state-codes"},
		Short:   "管理项目状态码",
	}
	cmd.AddCommand(newStateCodeListCmd(cx), newStateCodeCreateCmd(cx))
	return cmd
}

func newStateCodeListCmd(cx *cliContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "项目状态码列表",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			codes, err := c.ListStateCodes(ctx, projectID, all)
			if err != nil {
				return err
			}
			return render(cx, codes, func(t *table) { stateCodeTable(t, codes...) })
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "包含已停用的状态码")
	return cmd
}

func newStateCodeCreateCmd(cx *cliContext) *cobra.Command {
	var (
		req         dto.StateCodeCreateRequest
		description string
	)
	cmd := &cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "创建状态码",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			req.Name = args[1]
			req.Description = lo.EmptyableToPtr(description)

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			sc, err := c.CreateStateCode(ctx, projectID, &req)
			if err != nil {
				return err
			}
			return render(cx, sc, func(t *table) { stateCodeTable(t, sc) })
		},
	}
	cmd.Flags().IntVar(&req.Code, "code", 0, "数值状态")
	cmd.Flags().StringVar(&description, "description", "", "描述")
	cmd.Flags().BoolVar(&req.IsInitial, "initial", false, "初始状态")
	cmd.Flags().BoolVar(&req.IsFinal, "final", false, "终止状态")
	cmd.Flags().BoolVar(&req.IsError, "error", false, "错误状态")
	return cmd
}
