package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
)

func TestProfileFileMissing(t *testing.T) {
	store := repository.NewProfileFile(filepath.Join(t.TempDir(), "profile.yaml"))

	profile, err := store.GetProfile(context.Background())
	gt.NoError(t, err)
	gt.A(t, profile.Facts).Length(0)
}

func TestProfileFileReadKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	gt.NoError(t, os.WriteFile(path, []byte("name: Alex\ncity: Lisbon\ngoal: run a marathon\n"), 0o600))

	profile, err := repository.NewProfileFile(path).GetProfile(context.Background())
	gt.NoError(t, err)
	gt.A(t, profile.Facts).Length(3)
	gt.Equal(t, profile.Facts[0], model.ProfileFact{Key: "name", Value: "Alex"})
	gt.Equal(t, profile.Facts[2], model.ProfileFact{Key: "goal", Value: "run a marathon"})
	gt.Equal(t, profile.Text(), "name: Alex\ncity: Lisbon\ngoal: run a marathon")
}

func TestProfileFilePutFact(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "profile.yaml")
	store := repository.NewProfileFile(path)

	gt.NoError(t, store.PutFact(ctx, model.ProfileFact{Key: "name", Value: "Alex"}))
	gt.NoError(t, store.PutFact(ctx, model.ProfileFact{Key: "job", Value: "engineer"}))
	gt.NoError(t, store.PutFact(ctx, model.ProfileFact{Key: "name", Value: "Sam"}))

	profile, err := repository.NewProfileFile(path).GetProfile(ctx)
	gt.NoError(t, err)
	gt.A(t, profile.Facts).Length(2)
	v, ok := profile.Get("name")
	gt.True(t, ok)
	gt.Equal(t, v, "Sam")

	gt.Error(t, store.PutFact(ctx, model.ProfileFact{Key: "", Value: "x"}))
}

func TestProfileFileRejectsNonMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	gt.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))

	_, err := repository.NewProfileFile(path).GetProfile(context.Background())
	gt.Error(t, err)
}

func TestProfileMemory(t *testing.T) {
	ctx := context.Background()
	store := repository.NewProfileMemory(model.ProfileFact{Key: "name", Value: "Alex"})

	gt.NoError(t, store.PutFact(ctx, model.ProfileFact{Key: "pet", Value: "cat"}))

	profile, err := store.GetProfile(ctx)
	gt.NoError(t, err)
	gt.Equal(t, profile.Text(), "name: Alex\npet: cat")
}
