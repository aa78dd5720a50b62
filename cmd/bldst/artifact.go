package main

import (
	"fmt"
	"net/url"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"buildstate/internal/dto"
	"buildstate/internal/model"
)

func artifactTable(t *table, artifacts ...*model.BuildArtifact) {
	t.header("ID", "NAME", "TYPE", "STATE", "LOCATION", "RESUMABLE", "FINAL", "EXPIRES")
	for _, a := range artifacts {
		location := str(a.ArtifactPath)
		if a.StorageBackend != nil {
			location = fmt.Sprintf("%s://%s/%s", *a.StorageBackend, str(a.StorageBucket), str(a.StorageKey))
		}
		t.row(fmt.Sprint(a.ID), a.ArtifactName, a.ArtifactType, fmt.Sprint(a.StateCode), location,
			fmt.Sprint(a.IsResumable), fmt.Sprint(a.IsFinal), timeStr(a.ExpiresAt))
	}
}

func newArtifactCmd(cx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artifact",
		Aliases: []string{"artifacts"},
		Short:   "管理构建产物",
	}
	cmd.AddCommand(
		newArtifactRegisterCmd(cx),
		newArtifactListCmd(cx),
		newArtifactDeleteCmd(cx),
	)
	return cmd
}

func newArtifactRegisterCmd(cx *cliContext) *cobra.Command {
	var (
		req                                dto.ArtifactCreateRequest
		stateCode                          int
		path, backend, region, bucket, key string
		checksum, algorithm                string
		size                               int64
	)
	cmd := &cobra.Command{
		Use:   "register <build-id> <name>",
		Short: "登记产物",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			req.ArtifactName = args[1]
			req.StateCode = lo.ToPtr(stateCode)
			req.ArtifactPath = lo.EmptyableToPtr(path)
			req.StorageBackend = lo.EmptyableToPtr(backend)
			req.StorageRegion = lo.EmptyableToPtr(region)
			req.StorageBucket = lo.EmptyableToPtr(bucket)
			req.StorageKey = lo.EmptyableToPtr(key)
			req.Checksum = lo.EmptyableToPtr(checksum)
			req.ChecksumAlgorithm = lo.EmptyableToPtr(algorithm)
			if size > 0 {
				req.SizeBytes = lo.ToPtr(size)
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			artifact, err := c.RegisterArtifact(ctx, buildID, &req)
			if err != nil {
				return err
			}
			return render(cx, artifact, func(t *table) { artifactTable(t, artifact) })
		},
	}
	f := cmd.Flags()
	f.IntVar(&stateCode, "state", 0, "采集时的数值状态")
	f.StringVar(&req.ArtifactType, "type", "", "产物类型, 如 snapshot/ami/disk_image")
	f.StringVar(&path, "path", "", "本地路径")
	f.StringVar(&backend, "backend", "", "存储后端: s3/azure_blob/gcs/local")
	f.StringVar(&region, "region", "", "存储区域")
	f.StringVar(&bucket, "bucket", "", "存储桶")
	f.StringVar(&key, "key", "", "对象键")
	f.Int64Var(&size, "size", 0, "大小(字节)")
	f.StringVar(&checksum, "checksum", "", "校验和")
	f.StringVar(&algorithm, "checksum-algorithm", "", "校验算法: md5/sha1/sha256/sha512")
	f.BoolVar(&req.IsResumable, "resumable", false, "可用于恢复")
	f.BoolVar(&req.IsFinal, "final", false, "最终产物")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newArtifactListCmd(cx *cliContext) *cobra.Command {
	var (
		stateCode     int
		artifactType  string
		resumableOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list <build-id>",
		Short: "产物列表",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			query := url.Values{}
			if cmd.Flags().Changed("state") {
				query.Set("state_code", fmt.Sprint(stateCode))
			}
			if artifactType != "" {
				query.Set("artifact_type", artifactType)
			}
			if resumableOnly {
				query.Set("is_resumable", "true")
			}

			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			artifacts, err := c.ListArtifacts(ctx, buildID, query)
			if err != nil {
				return err
			}
			return render(cx, artifacts, func(t *table) { artifactTable(t, artifacts...) })
		},
	}
	cmd.Flags().IntVar(&stateCode, "state", 0, "按数值状态过滤")
	cmd.Flags().StringVar(&artifactType, "type", "", "按类型过滤")
	cmd.Flags().BoolVar(&resumableOnly, "resumable", false, "仅可恢复产物")
	return cmd
}

func newArtifactDeleteCmd(cx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <build-id> <artifact-id>",
		Short: "删除产物(软删除)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildID, err := parseID(args[0])
			if err != nil {
				return err
			}
			artifactID, err := parseID(args[1])
			if err != nil {
				return err
			}
			c, err := cx.client()
			if err != nil {
				return err
			}
			ctx, cancel := cx.context()
			defer cancel()

			if err := c.DeleteArtifact(ctx, buildID, artifactID); err != nil {
				return err
			}
			fmt.Fprintf(cx.out, "artifact %d deleted\n", artifactID)
			return nil
		},
	}
}
