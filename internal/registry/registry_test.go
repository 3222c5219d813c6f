package registry_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/config"
	"github.com/vk/calcgrid/internal/hcl"
	"github.com/vk/calcgrid/internal/registry"
	"github.com/vk/calcgrid/internal/testutil"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
	"github.com/vk/calcgrid/modules/ohms_law"
)

// calculatorsDir holds the templates shipped with the binary.
const calculatorsDir = "../../calculators"

func loaded(t *testing.T) *registry.Registry {
	t.Helper()
	ctx, _ := testutil.LoggedContext(t)
	r := registry.New()
	require.NoError(t, r.RegisterModules(&ohms_law.Module{}))
	require.NoError(t, r.LoadTemplates(ctx, hcl.NewLoader(), calculatorsDir))
	return r
}

func TestShippedTemplates_Validate(t *testing.T) {
	r := loaded(t)

	names := make([]string, 0)
	for _, info := range r.List() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"dew_point", "low_pass_rc", "ohms_law", "track_width"}, names)

	ctx, _ := testutil.LoggedContext(t)
	require.NoError(t, r.ValidateRegistry(ctx))
}

func TestSearch(t *testing.T) {
	r := loaded(t)
	names := func(infos []registry.Info) []string {
		out := make([]string, 0, len(infos))
		for _, info := range infos {
			out = append(out, info.Name)
		}
		return out
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty text returns everything", text: "", want: []string{"dew_point", "low_pass_rc", "ohms_law", "track_width"}},
		{name: "blank text returns everything", text: "  ", want: []string{"dew_point", "low_pass_rc", "ohms_law", "track_width"}},
		{name: "title ignores case", text: "DEW", want: []string{"dew_point"}},
		{name: "tag only", text: "Condensation", want: []string{"dew_point"}},
		{name: "tag shared by several", text: "current", want: []string{"ohms_law", "track_width"}},
		{name: "tag only, not in title", text: "cutoff", want: []string{"low_pass_rc"}},
		{name: "no match", text: "quantum", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(r.Search(tt.text)))
		})
	}
}

func TestLowPassTemplate_Scenario(t *testing.T) {
	// --- Arrange ---
	c, err := loaded(t).New("low_pass_rc")
	require.NoError(t, err)
	ctx := context.Background()

	// --- Act ---
	require.NoError(t, c.Build(ctx))

	// --- Assert ---
	fc, _ := c.Variable("fc")
	assert.InDelta(t, 159.15, fc.Float(), 0.01)
	assert.Equal(t, "159.2 Hz", fc.Formatted())
	tau, _ := c.Variable("tau")
	assert.Equal(t, "1m", tau.Formatted())

	// --- Act ---
	require.NoError(t, c.SelectOutput(ctx, "rcf", "r"))
	require.NoError(t, c.SetValue(ctx, "fc", value.Number(1000)))

	// --- Assert ---
	r, _ := c.Variable("r")
	assert.InDelta(t, 159.15, r.Float(), 0.01)
	assert.InDelta(t, 159.15e-6, tau.Float(), 1e-8)
}

func TestDewPointTemplate_RoundTrip(t *testing.T) {
	c, err := loaded(t).New("dew_point")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Build(ctx))

	dew, _ := c.Variable("dew_point")
	assert.InDelta(t, 9.26, dew.Float(), 0.01)
	assert.Equal(t, validation.Ok, dew.Worst().Level)

	require.NoError(t, c.SelectOutput(ctx, "thd", "humidity"))
	humidity, _ := c.Variable("humidity")
	assert.InDelta(t, 50.0, humidity.Float(), 1e-9)

	require.NoError(t, c.SetValue(ctx, "dew_point", value.Number(25)))
	assert.Greater(t, humidity.Float(), 100.0)
	assert.Equal(t, validation.Error, humidity.Worst().Level)
	assert.Equal(t, validation.Warning, dew.Worst().Level, "dew point above temperature")
}

func TestTrackWidthTemplate_Layer(t *testing.T) {
	c, err := loaded(t).New("track_width")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Build(ctx))

	width, _ := c.Variable("width")
	external := width.Float()
	assert.InDelta(t, 11.8, external, 0.1)

	require.NoError(t, c.SetValue(ctx, "layer", value.Text("internal")))
	assert.Greater(t, width.Float(), external*2)

	area, _ := c.Variable("area")
	assert.True(t, area.Hidden())
	assert.Equal(t, calc.Output, area.Direction())
	assert.InDelta(t, width.Float()*1.378, area.Float(), 1e-9)

	require.NoError(t, c.SetValue(ctx, "layer", value.Text("core")))
	layer, _ := c.Variable("layer")
	assert.Equal(t, validation.Error, layer.Worst().Level)
	assert.True(t, math.IsNaN(width.Float()) || width.Float() > 0)
}

func TestRegister_Errors(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterModules(&ohms_law.Module{}))

	err := r.RegisterModules(&ohms_law.Module{})
	assert.ErrorContains(t, err, "already registered")

	assert.Error(t, r.Register(&registry.Template{}))
	assert.Error(t, r.Register(&registry.Template{Info: registry.Info{Name: "x"}}))

	_, err = r.New("nope")
	assert.ErrorContains(t, err, `unknown calculator "nope"`)
}

func TestFromDefinition_Errors(t *testing.T) {
	parse := func(src string) *config.Check {
		e, err := testutilExpr(src)
		require.NoError(t, err)
		return &config.Check{Condition: e, Message: "m"}
	}
	testCases := []struct {
		name    string
		def     *config.Variable
		wantErr string
	}{
		{"unknown validator", &config.Variable{Name: "a", Validators: []*config.Validator{{Name: "is_prime"}}}, "unknown validator"},
		{"threshold missing", &config.Variable{Name: "a", Validators: []*config.Validator{{Name: "is_at_most"}}}, "needs a threshold"},
		{"other missing", &config.Variable{Name: "a", Validators: []*config.Validator{{Name: "is_less_than"}}}, "needs the other variable"},
		{"options missing", &config.Variable{Name: "a", Validators: []*config.Validator{{Name: "is_one_of"}}}, "declare options"},
		{"bad level", &config.Variable{Name: "a", Validators: []*config.Validator{{Name: "is_number", Level: "fatal"}}}, "fatal"},
		{"bad direction", &config.Variable{Name: "a", Direction: "up"}, "unknown direction"},
		{"unknown function", &config.Variable{Name: "a", Checks: []*config.Check{parse(`rand() > 0`)}}, "unknown function"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.FromDefinition(&config.Calculator{Name: "c", Variables: []*config.Variable{tc.def}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateRegistry_ReportsBrokenTemplates(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"broken.hcl": `
calculator "broken" {
  variable "a" {
    direction = "output"
    equation  = b * 2
  }
}
`})
	r := registry.New()
	require.NoError(t, r.LoadTemplates(context.Background(), hcl.NewLoader(), dir))

	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `calculator "broken"`)
	assert.ErrorContains(t, err, "unknown variable")
}
