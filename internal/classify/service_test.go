package classify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
)

type fakeGroupRepo struct {
	groups   []Group
	replaced bool
	err      error
}

func (f *fakeGroupRepo) List(ctx context.Context) ([]Group, error) {
	return f.groups, f.err
}

func (f *fakeGroupRepo) ReplaceAll(ctx context.Context, groups []Group) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = true
	f.groups = groups
	return nil
}

type fakeBumper struct{ bumps int }

func (f *fakeBumper) Bump(ctx context.Context) error {
	f.bumps++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validInputs() []GroupInput {
	return []GroupInput{
		{ID: "ventas", Name: "Ventas Locales", MacroCategory: "Ingresos Operacionales", Kind: "INGRESO", AccountCodes: []string{"4101001", "4101002"}},
		{ID: "mp", Name: "Materias Primas", MacroCategory: "Costo de Venta", Kind: "GASTO", AccountCodes: []string{"3101001"}},
	}
}

func TestReplaceValid(t *testing.T) {
	repo := &fakeGroupRepo{}
	bumper := &fakeBumper{}
	svc := NewService(repo, bumper, testLogger())

	err := svc.Replace(context.Background(), validInputs())
	require.NoError(t, err)
	require.True(t, repo.replaced)
	require.Equal(t, 1, bumper.bumps)
	require.Len(t, repo.groups, 2)
	require.Equal(t, KindIngreso, repo.groups[0].Kind)
}

func TestReplaceRejectsDuplicateGroupID(t *testing.T) {
	inputs := validInputs()
	inputs[1].ID = inputs[0].ID
	svc := NewService(&fakeGroupRepo{}, &fakeBumper{}, testLogger())
	err := svc.Replace(context.Background(), inputs)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReplaceRejectsAccountInTwoGroups(t *testing.T) {
	inputs := validInputs()
	inputs[1].AccountCodes = append(inputs[1].AccountCodes, "4101001")
	repo := &fakeGroupRepo{}
	svc := NewService(repo, &fakeBumper{}, testLogger())
	err := svc.Replace(context.Background(), inputs)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.False(t, repo.replaced)
}

func TestReplaceRejectsBadKind(t *testing.T) {
	inputs := validInputs()
	inputs[0].Kind = "MIXTO"
	svc := NewService(&fakeGroupRepo{}, &fakeBumper{}, testLogger())
	err := svc.Replace(context.Background(), inputs)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReplaceRejectsEmptyAccountList(t *testing.T) {
	inputs := validInputs()
	inputs[0].AccountCodes = nil
	svc := NewService(&fakeGroupRepo{}, &fakeBumper{}, testLogger())
	err := svc.Replace(context.Background(), inputs)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestIndexByAccount(t *testing.T) {
	groups := []Group{
		{ID: "ventas", AccountCodes: []string{"4101001"}},
		{ID: "mp", AccountCodes: []string{"3101001", "3101002"}},
	}
	index := IndexByAccount(groups)
	require.Equal(t, "ventas", index["4101001"].ID)
	require.Equal(t, "mp", index["3101002"].ID)
	require.Len(t, index, 3)
}
