package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildstate/pkg/client"
)

// cliContext 子命令共享的配置与客户端
type cliContext struct {
	v       *viper.Viper
	out     io.Writer
	timeout time.Duration
}

func (c *cliContext) client() (*client.Client, error) {
	url := c.v.GetString("url")
	if url == "" {
		return nil, fmt.Errorf("未配置服务地址, 使用 --url 或 BLDST_URL")
	}
	opts := []client.Option{}
	if key := c.v.GetString("api_key"); key != "" {
		opts = append(opts, client.WithAPIKey(key))
	} else if token := c.v.GetString("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(url, opts...), nil
}

func (c *cliContext) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *cliContext) format() string {
	return c.v.GetString("output")
}

func newRootCmd() *cobra.Command {
	cx := &cliContext{v: viper.New(), out: os.Stdout}
	var configFile string

	root := &cobra.Command{
		Use:           "bldst",
		Short:         "BuildState CLI, 构建状态与恢复管理",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cx.out = cmd.OutOrStdout()
			return loadCLIConfig(cx.v, configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "配置文件 (默认 $HOME/.bldst.yaml)")
	flags.String("url", "", "服务地址, 如 http://localhost:8080")
	flags.String("api-key", "", "API Key")
	flags.String("token", "", "Bearer token")
	flags.StringP("output", "o", "table", "输出格式: table/json/yaml")
	flags.DurationVar(&cx.timeout, "timeout", 30*time.Second, "请求超时")

	_ = cx.v.BindPFlag("url", flags.Lookup("url"))
	_ = cx.v.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = cx.v.BindPFlag("token", flags.Lookup("token"))
	_ = cx.v.BindPFlag("output", flags.Lookup("output"))

	root.AddCommand(
		newConfigCmd(cx),
		newHealthCmd(cx),
		newBuildCmd(cx),
		newArtifactCmd(cx),
		newVariableCmd(cx),
		newResumeCmd(cx),
		newStateCodeCmd(cx),
	)
	return root
}

// loadCLIConfig 优先级: 命令行参数 > BLDST_* 环境变量 > 配置文件
func loadCLIConfig(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix("BLDST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("output", "table")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.SetConfigFile(filepath.Join(home, ".bldst.yaml"))
	}

	// 默认配置文件可以不存在
	if err := v.ReadInConfig(); err != nil && configFile != "" {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	return nil
}

func newConfigCmd(cx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看CLI配置",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "显示当前生效的配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := map[string]string{
				"url":     cx.v.GetString("url"),
				"api_key": maskSecret(cx.v.GetString("api_key")),
				"token":   maskSecret(cx.v.GetString("token")),
				"output":  cx.format(),
				"config":  cx.v.ConfigFileUsed(),
			}
			return render(cx, settings, func(t *table) {
				t.header("SETTING", "VALUE")
				for _, k := range []string{"url", "api_key", "token", "output", "config"} {
					t.row(k, settings[k])
				}
			})
		},
	})
	return cmd
}

func newHealthCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "检查服务存活与就绪",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			live, err := c.Health(ctx)
			if err != nil {
				return err
			}
			ready, err := c.Ready(ctx)
			if err != nil {
				return err
			}
			result := map[string]string{"health": live["status"], "ready": ready["status"]}
			return render(cx, result, func(t *table) {
				t.header("CHECK", "STATUS")
				t.row("health", result["health"])
				t.row("ready", result["ready"])
			})
		},
	}
}

// maskSecret 只显示末4位
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
