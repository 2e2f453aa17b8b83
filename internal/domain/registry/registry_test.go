package registry

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
)

func TestCatalogLoadsEveryFamily(t *testing.T) {
	bridge := NewBridge(Catalog(), nil, nil)

	table, err := bridge.RegisterAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, table.Failures())
	assert.Len(t, table.Keys(), 43)

	for _, f := range table.Families() {
		require.NotEmpty(t, f.Components, "family %s", f.Key)
		for _, c := range f.Components {
			assert.NotEmpty(t, c.Name, "family %s", f.Key)
			assert.Equal(t, f.Key, c.Family)
		}
	}
}

func TestCardFamily(t *testing.T) {
	table, err := NewBridge(Catalog(), nil, nil).RegisterAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Card", "CardHeader", "CardFooter", "CardTitle", "CardDescription", "CardContent",
	}, table.Symbols("card"))

	f, ok := table.Family("card")
	require.True(t, ok)
	assert.Equal(t, "Card", f.Default())

	header, ok := table.Lookup("CardHeader")
	require.True(t, ok)
	assert.Equal(t, KindElement, header.Kind)
	assert.Equal(t, "div", header.Tag)
	assert.Equal(t, "card-header", header.Slot)

	toast, ok := table.Lookup("Toast")
	require.True(t, ok)
	assert.Equal(t, KindFunction, toast.Kind)

	sw, ok := table.Lookup("Switch")
	require.True(t, ok)
	require.NotNil(t, sw.State)
	assert.Equal(t, "checked", sw.State.Prop)
}

func TestRegisterAllIsIdempotent(t *testing.T) {
	fsys := fstest.MapFS{
		"button.yaml": {Data: []byte("key: button\ncomponents:\n  - name: Button\n    tag: button\n")},
	}
	bridge := NewBridge(fsys, nil, nil)

	first, err := bridge.RegisterAll(context.Background())
	require.NoError(t, err)

	// Changes to the catalog after publishing are not observed
	fsys["badge.yaml"] = &fstest.MapFile{Data: []byte("key: badge\ncomponents:\n  - name: Badge\n")}

	second, err := bridge.RegisterAll(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"button"}, second.Keys())
	assert.Same(t, first, bridge.Table())

	select {
	case <-bridge.Ready():
	default:
		t.Fatal("bridge should report ready")
	}
}

func TestFamilyFailureIsIsolated(t *testing.T) {
	fsys := fstest.MapFS{
		"card.yaml":        {Data: []byte("key: card\ncomponents:\n  - name: Card\n  - name: CardContent\n")},
		"broken.yaml":      {Data: []byte("key: [unterminated\n")},
		"empty.yaml":       {Data: []byte("key: empty\ncomponents: []\n")},
		"bad-symbol.yaml":  {Data: []byte("key: bad\ncomponents:\n  - name: 1Nope\n")},
		"nested/tabs.yml":  {Data: []byte("key: tabs\ncomponents:\n  - name: Tabs\n")},
		"notes/readme.txt": {Data: []byte("ignored")},
	}
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	table, err := NewBridge(fsys, nil, metrics).RegisterAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"card", "tabs"}, table.Keys())
	assert.ElementsMatch(t, []string{"bad-symbol.yaml", "broken.yaml", "empty.yaml"}, table.Failures())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.FamilyFailures))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.RegistryComponents))
}

func TestRegisterAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBridge(Catalog(), nil, nil).RegisterAll(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		family  Family
		wantErr bool
	}{
		{
			name:   "defaults",
			family: Family{Key: "alert-dialog", Components: []Component{{Name: "AlertDialogTitle"}}},
		},
		{
			name:    "uppercase key",
			family:  Family{Key: "Card", Components: []Component{{Name: "Card"}}},
			wantErr: true,
		},
		{
			name:    "duplicate symbol",
			family:  Family{Key: "card", Components: []Component{{Name: "Card"}, {Name: "Card"}}},
			wantErr: true,
		},
		{
			name:    "reserved word default",
			family:  Family{Key: "card", Components: []Component{{Name: "Card"}, {Name: "default"}}},
			wantErr: true,
		},
		{
			name:    "reserved word class",
			family:  Family{Key: "card", Components: []Component{{Name: "class"}}},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			family:  Family{Key: "card", Components: []Component{{Name: "Card", Kind: "widget"}}},
			wantErr: true,
		},
		{
			name:    "state without prop",
			family:  Family{Key: "switch", Components: []Component{{Name: "Switch", State: &StateSpec{On: "on"}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.family.normalize()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFamily)
				return
			}
			require.NoError(t, err)
			c := tt.family.Components[0]
			assert.Equal(t, KindElement, c.Kind)
			assert.Equal(t, "div", c.Tag)
			assert.Equal(t, "alert-dialog-title", c.Slot)
		})
	}
}

func TestTableVersionTracksContents(t *testing.T) {
	a := NewTable([]Family{{Key: "card", Components: []Component{{Name: "Card", Tag: "div"}}}})
	b := NewTable([]Family{{Key: "card", Components: []Component{{Name: "Card", Tag: "div"}}}})
	c := NewTable([]Family{{Key: "card", Components: []Component{{Name: "Card", Tag: "section"}}}})

	assert.Equal(t, a.Version(), b.Version())
	assert.NotEqual(t, a.Version(), c.Version())
}

func TestEarlierFamilyKeepsSymbol(t *testing.T) {
	table := NewTable([]Family{
		{Key: "a", Components: []Component{{Name: "Shared", Tag: "section", Family: "a"}}},
		{Key: "b", Components: []Component{{Name: "Shared", Tag: "div", Family: "b"}}},
	})

	c, ok := table.Lookup("Shared")
	require.True(t, ok)
	assert.Equal(t, "a", c.Family)
	assert.Equal(t, []string{"Shared"}, table.Symbols("b"))
}
