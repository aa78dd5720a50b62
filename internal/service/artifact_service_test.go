package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	pkgErrors "buildstate/pkg/errors"
)

func snapshotRequest(name string, state int) *dto.ArtifactCreateRequest {
	return &dto.ArtifactCreateRequest{
		StateCode:      lo.ToPtr(state),
		ArtifactName:   name,
		ArtifactType:   "snapshot",
		StorageBackend: lo.ToPtr("s3"),
		StorageBucket:  lo.ToPtr("images"),
		StorageKey:     lo.ToPtr("builds/" + name),
		IsResumable:    true,
	}
}

func TestArtifactRegisterUniqueness(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	first, err := env.artifacts.Register(ctx, build.ID, snapshotRequest("vm-snapshot", 10))
	require.NoError(t, err)

	_, err = env.artifacts.Register(ctx, build.ID, snapshotRequest("vm-snapshot", 20))
	assertKind(t, err, pkgErrors.KindConflict)

	// 其他构建可以使用同名产物
	other := env.newBuild(t)
	_, err = env.artifacts.Register(ctx, other.ID, snapshotRequest("vm-snapshot", 10))
	require.NoError(t, err)

	require.NoError(t, env.artifacts.Delete(ctx, build.ID, first.ID))
	_, err = env.artifacts.Get(ctx, build.ID, first.ID)
	assertKind(t, err, pkgErrors.KindNotFound)

	second, err := env.artifacts.Register(ctx, build.ID, snapshotRequest("vm-snapshot", 20))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestArtifactRegisterUnknownBuild(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.artifacts.Register(context.Background(), 404, snapshotRequest("x", 0))
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestArtifactListFilters(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.artifacts.Register(ctx, build.ID, snapshotRequest("late", 20))
	require.NoError(t, err)
	_, err = env.artifacts.Register(ctx, build.ID, snapshotRequest("early", 10))
	require.NoError(t, err)
	final := snapshotRequest("ami", 30)
	final.ArtifactType = "image"
	final.IsResumable = false
	final.IsFinal = true
	_, err = env.artifacts.Register(ctx, build.ID, final)
	require.NoError(t, err)

	all, err := env.artifacts.List(ctx, build.ID, &dto.ArtifactListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "early", all[0].ArtifactName)
	assert.Equal(t, "late", all[1].ArtifactName)

	resumable, err := env.artifacts.List(ctx, build.ID, &dto.ArtifactListRequest{IsResumable: lo.ToPtr(true)})
	require.NoError(t, err)
	assert.Len(t, resumable, 2)

	images, err := env.artifacts.List(ctx, build.ID, &dto.ArtifactListRequest{ArtifactType: "image"})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.True(t, images[0].IsFinal)

	atTen, err := env.artifacts.List(ctx, build.ID, &dto.ArtifactListRequest{StateCode: lo.ToPtr(10)})
	require.NoError(t, err)
	require.Len(t, atTen, 1)
}

func TestArtifactUpdateRename(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	a, err := env.artifacts.Register(ctx, build.ID, snapshotRequest("a", 10))
	require.NoError(t, err)
	_, err = env.artifacts.Register(ctx, build.ID, snapshotRequest("b", 10))
	require.NoError(t, err)

	_, err = env.artifacts.Update(ctx, build.ID, a.ID, &dto.ArtifactUpdateRequest{ArtifactName: lo.ToPtr("b")})
	assertKind(t, err, pkgErrors.KindConflict)

	updated, err := env.artifacts.Update(ctx, build.ID, a.ID, &dto.ArtifactUpdateRequest{
		ArtifactName: lo.ToPtr("c"),
		SizeBytes:    lo.ToPtr(int64(2048)),
	})
	require.NoError(t, err)
	assert.Equal(t, "c", updated.ArtifactName)
	assert.Equal(t, int64(2048), *updated.SizeBytes)

	_, err = env.artifacts.Update(ctx, build.ID+100, a.ID, &dto.ArtifactUpdateRequest{})
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestArtifactSweepExpired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)
	now := time.Now().UTC()

	expired := snapshotRequest("expired", 10)
	expired.ExpiresAt = lo.ToPtr(now.Add(-time.Hour))
	_, err := env.artifacts.Register(ctx, build.ID, expired)
	require.NoError(t, err)

	fresh := snapshotRequest("fresh", 10)
	fresh.ExpiresAt = lo.ToPtr(now.Add(time.Hour))
	_, err = env.artifacts.Register(ctx, build.ID, fresh)
	require.NoError(t, err)

	_, err = env.artifacts.Register(ctx, build.ID, snapshotRequest("forever", 10))
	require.NoError(t, err)

	count, err := env.artifacts.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	left, err := env.artifacts.List(ctx, build.ID, &dto.ArtifactListRequest{})
	require.NoError(t, err)
	names := lo.Map(left, func(a *model.BuildArtifact, _ int) string { return a.ArtifactName })
	assert.ElementsMatch(t, []string{"fresh", "forever"}, names)
}

func TestArtifactRegisterSerializesOnBuild(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)
	locks := lockedTables(t, env.db)

	artifact, err := env.artifacts.Register(ctx, build.ID, snapshotRequest("disk", 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"builds"}, locks())

	_, err = env.artifacts.Update(ctx, build.ID, artifact.ID, &dto.ArtifactUpdateRequest{ArtifactName: lo.ToPtr("disk-v2")})
	require.NoError(t, err)
	assert.Equal(t, []string{"builds", "builds"}, locks())

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.artifacts.Register(ctx, build.ID, snapshotRequest("ami", 20))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, lo.CountBy(errs, func(err error) bool { return err == nil }))

	list, err := env.artifacts.List(ctx, build.ID, &dto.ArtifactListRequest{})
	require.NoError(t, err)
	assert.Len(t, lo.Filter(list, func(a *model.BuildArtifact, _ int) bool { return a.ArtifactName == "ami" }), 1)
}
