package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"buildstate/internal/model"
	"buildstate/internal/testutil"
	"buildstate/pkg/constants"
)

func TestArtifactListOrderProperties(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	seed := testutil.SeedProject(t, db, "centos-images")
	repos := New(db)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("产物按状态码升序, 同状态按登记顺序", prop.ForAll(
		func(codes []int) bool {
			build := &model.Build{
				ProjectID:          seed.Project.ID,
				CurrentStateCodeID: seed.States["init"].ID,
				Status:             constants.BuildStatusRunning,
				StartTime:          time.Now().UTC(),
				Version:            1,
			}
			require.NoError(t, repos.Builds.Create(ctx, build))
			for i, code := range codes {
				require.NoError(t, repos.Artifacts.Create(ctx, &model.BuildArtifact{
					BuildID:      build.ID,
					StateCode:    code,
					ArtifactName: fmt.Sprintf("artifact-%d", i),
					ArtifactType: "snapshot",
				}))
			}

			list, err := repos.Artifacts.ListByBuild(ctx, build.ID, ArtifactFilter{})
			if err != nil || len(list) != len(codes) {
				return false
			}
			for i := 1; i < len(list); i++ {
				prev, cur := list[i-1], list[i]
				if prev.StateCode > cur.StateCode {
					return false
				}
				if prev.StateCode == cur.StateCode && prev.ID > cur.ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}
