package shaders

import (
	"errors"
	"strings"
	"testing"

	"github.com/anrid/covid-scope/pkg/gpu"
	"github.com/anrid/covid-scope/pkg/gpu/soft"
)

// TestPickVertexHasNoNormal ensures the picking program takes positions only.
func TestPickVertexHasNoNormal(t *testing.T) {
	if strings.Contains(PickVertex.Source, Normal) {
		t.Fatal("pick.vert declares a normal attribute")
	}
	if strings.Contains(FlatFragment.Source, "vNormal") {
		t.Fatal("flat.frag reads vNormal")
	}

	dev := soft.New(SoftKernels())
	if _, err := gpu.NewProgram(dev, PickVertex, FlatFragment, PickAttributes, FlatUniforms()); err != nil {
		t.Fatalf("NewProgram(pick) returned error: %v", err)
	}
	_, err := gpu.NewProgram(dev, PickVertex, FlatFragment, Attributes, FlatUniforms())
	if !errors.Is(err, gpu.ErrUnknownName) {
		t.Fatalf("NewProgram(pick, with normal) error = %v, want %v", err, gpu.ErrUnknownName)
	}
}

// TestStageSourcesEmbedded ensures every stage carries its GLSL text.
func TestStageSourcesEmbedded(t *testing.T) {
	for _, st := range []gpu.Stage{ColumnVertex, PickVertex, ShadedFragment, FlatFragment} {
		if !strings.Contains(st.Source, "void main()") {
			t.Fatalf("stage %s has no source", st.Name)
		}
	}
}

// TestKernelsMatchStages ensures the software table covers every stage name.
func TestKernelsMatchStages(t *testing.T) {
	k := SoftKernels()
	for _, st := range []gpu.Stage{ColumnVertex, PickVertex} {
		if _, ok := k.Vertex[st.Name]; !ok {
			t.Fatalf("no vertex kernel for %s", st.Name)
		}
	}
	for _, st := range []gpu.Stage{ShadedFragment, FlatFragment} {
		if _, ok := k.Fragment[st.Name]; !ok {
			t.Fatalf("no fragment kernel for %s", st.Name)
		}
	}
	if got := k.Vertex[PickVertex.Name].Attributes; len(got) != 1 || got[0] != Position {
		t.Fatalf("pick kernel attributes = %v, want [%s]", got, Position)
	}
}
