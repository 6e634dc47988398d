package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes " + name,
		Func: func(ctx context.Context, input string) (string, error) {
			return name + ":" + input, nil
		},
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("Search")))
	require.NoError(t, r.Register(echoTool("Calculator")))

	tool, err := r.Resolve("Calculator")
	require.NoError(t, err)
	assert.Equal(t, "Calculator", tool.Name)

	_, err = r.Resolve("calculator")
	assert.True(t, errors.Is(err, ErrUnknownTool), "names are case-sensitive")

	_, err = r.Resolve("Missing")
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	first := echoTool("BIONET")
	first.ReturnDirect = true
	require.NoError(t, r.Register(first))

	err := r.Register(echoTool("BIONET"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateToolName))

	// the first registration wins
	tool, err := r.Resolve("BIONET")
	require.NoError(t, err)
	assert.True(t, tool.ReturnDirect)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsInvalidTools(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(Tool{Name: "", Func: echoTool("x").Func}))
	assert.Error(t, r.Register(Tool{Name: "nofunc"}))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryListKeepsRegistrationOrder(t *testing.T) {
	names := []string{"BIONET", "custom_search", "Calculator", "NBlast"}
	var ts []Tool
	for _, n := range names {
		ts = append(ts, echoTool(n))
	}
	r, err := NewRegistryFromTools(ts...)
	require.NoError(t, err)

	assert.Equal(t, names, r.Names())
	descriptions := r.Descriptions()
	require.Len(t, descriptions, len(names))
	for i, d := range descriptions {
		assert.Equal(t, names[i], d.Name)
		assert.Equal(t, "echoes "+names[i], d.Description)
	}
}

func TestResolveSucceedsOnlyForRegisteredNames(t *testing.T) {
	r := NewRegistry()
	registered := map[string]bool{}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("tool-%d", i%7)
		err := r.Register(echoTool(name))
		if registered[name] {
			assert.True(t, errors.Is(err, ErrDuplicateToolName), name)
		} else {
			assert.NoError(t, err)
		}
		registered[name] = true
	}
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("tool-%d", i)
		_, err := r.Resolve(name)
		if registered[name] {
			assert.NoError(t, err, name)
		} else {
			assert.True(t, errors.Is(err, ErrUnknownTool), name)
		}
	}
}

func TestNewRegistryFromToolsStopsOnDuplicate(t *testing.T) {
	_, err := NewRegistryFromTools(echoTool("a"), echoTool("a"))
	assert.True(t, errors.Is(err, ErrDuplicateToolName))
}

func TestDefinitions(t *testing.T) {
	r, err := NewRegistryFromTools(echoTool("Search"), echoTool("Calculator"))
	require.NoError(t, err)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "Search", defs[0].Name)
	require.NotNil(t, defs[0].Parameters)
	assert.Equal(t, "object", defs[0].Parameters.Type)
	_, ok := defs[0].Parameters.Properties.Get("input")
	assert.True(t, ok)
}

func TestParseArguments(t *testing.T) {
	in, err := ParseArguments(`{"input": "2^10"}`)
	require.NoError(t, err)
	assert.Equal(t, "2^10", in)

	for _, args := range []string{
		`{}`,
		`{"input": 42}`,
		`gttccatggccaacacttgtcacta`,
	} {
		_, err := ParseArguments(args)
		assert.True(t, errors.Is(err, ErrInvalidArguments), args)
	}
}
