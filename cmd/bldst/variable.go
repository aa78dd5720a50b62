package main

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"buildstate/internal/dto"
)

func variableTable(t *table, vars ...*dto.VariableResponse) {
	t.header("KEY", "VALUE", "TYPE", "SET_AT", "SENSITIVE", "REQUIRED")
	for _, v := range vars {
		t.row(v.VariableKey, v.VariableValue, v.VariableType, intStr(v.SetAtState),
			fmt.Sprint(v.IsSensitive), fmt.Sprint(v.IsRequiredForResume))
	}
}

func newVariableCmd(cx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "var",
		Aliases: []string{"variable", "variables"},
		Short:   "管理构建变量",
	}
	cmd.AddCommand(
		newVariableSetCmd(cx),
		newVariableGetCmd(cx),
		newVariableListCmd(cx),
		newVariableDictCmd(cx),
	)
	return cmd
}

func newVariableSetCmd(cx *cliContext) *cobra.Command {
	var (
		req        dto.VariableSetRequest
		setAtState int
	)
	cmd := &cobra.Command{
		Use:   "set <build-id> <key> <value>",
		Short: "写入变量, 已存在时覆盖",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			req.VariableKey = args[1]
			req.VariableValue = args[2]
			if cmd.Flags().Changed("state") {
				req.SetAtState = lo.ToPtr(setAtState)
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			v, err := c.SetVariable(ctx, buildID, &req)
			if err != nil {
				return err
			}
			return render(cx, v, func(t *table) { variableTable(t, v) })
		},
	}
	cmd.Flags().StringVar(&req.VariableType, "type", "string", "类型: string/number/boolean/json")
	cmd.Flags().IntVar(&setAtState, "state", 0, "写入时的数值状态")
	cmd.Flags().BoolVar(&req.IsSensitive, "sensitive", false, "敏感变量, 读取时掩码")
	cmd.Flags().BoolVar(&req.IsRequiredForResume, "required", false, "恢复时必需")
	return cmd
}

func newVariableGetCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <build-id> <key>",
		Short: "读取变量原值, 敏感变量需要管理员权限",
		Args:  cobra.ExactArgs(2),
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

			v, err := c.GetVariable(ctx, buildID, args[1])
			if err != nil {
				return err
			}
			return render(cx, v, func(t *table) { variableTable(t, v) })
		},
	}
}

func newVariableListCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <build-id>",
		Short: "变量列表",
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

			vars, err := c.ListVariables(ctx, buildID)
			if err != nil {
				return err
			}
			return render(cx, vars, func(t *table) { variableTable(t, vars...) })
		},
	}
}

func newVariableDictCmd(cx *cliContext) *cobra.Command {
	var required bool
	cmd := &cobra.Command{
		Use:   "dict <build-id>",
		Short: "以 key=value 字典输出变量",
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

			dict, err := c.VariableDict(ctx, buildID, required)
			if err != nil {
				return err
			}
			return render(cx, dict, func(t *table) {
				keys := lo.Keys(dict)
				sort.Strings(keys)
				t.header("KEY", "VALUE")
				for _, k := range keys {
					t.row(k, dict[k])
				}
			})
		},
	}
	cmd.Flags().BoolVar(&required, "required", false, "仅恢复必需的变量")
	return cmd
}
