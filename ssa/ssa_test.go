package ssa_test

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/nickng/polyscop/ssa"
	"github.com/nickng/polyscop/ssa/build"
)

// This tests basic build.
func TestBuild(t *testing.T) {
	s := `package main
	import "fmt"
	func main() {
		fmt.Println("Hello World")
	}`

	conf := build.FromReader(strings.NewReader(s))
	info, err := conf.Build()
	if err != nil {
		t.Fatalf("SSA build failed: %v", err)
	}
	if info.Prog == nil {
		t.Errorf("SSA Program missing")
	}
	mains, err := ssa.MainPkgs(info.Prog)
	if err != nil {
		t.Errorf("cannot find main packages: %v", err)
	}
	for _, main := range mains {
		if main.Func("main") == nil {
			t.Error("expects main.main() but not found")
		}
	}
}

// This tests building with non-main package.
func TestBuildNonMainPkg(t *testing.T) {
	s := `package pkg
	func main() {
	}`

	conf := build.FromReader(strings.NewReader(s))
	info, err := conf.Build()
	if err != nil {
		t.Fatalf("SSA build failed: %v", err)
	}
	if _, err = ssa.MainPkgs(info.Prog); err != ssa.ErrNoMainPkgs {
		t.Errorf("unexpected main package")
	}
}

func TestFindFunc(t *testing.T) {
	s := `package main
	func main() {
		kernel(nil)
	}
	func kernel(a []int) {
		for i := range a {
			a[i] = 0
		}
	}`

	info, err := build.FromReader(strings.NewReader(s)).Build()
	if err != nil {
		t.Fatalf("SSA build failed: %v", err)
	}
	for _, path := range []string{"kernel", "main.kernel", `"main".kernel`} {
		fn, err := info.FindFunc(path)
		if err != nil {
			t.Errorf("FindFunc(%q) failed: %v", path, err)
			continue
		}
		if want, got := "kernel", fn.Name(); want != got {
			t.Errorf("FindFunc(%q) want: %s got: %s", path, want, got)
		}
	}
	if _, err := info.FindFunc("missing"); err == nil {
		t.Errorf("FindFunc(missing) should fail")
	}
	fns := info.SrcFuncs()
	if len(fns) < 2 || fns[0].Name() != "main" || fns[1].Name() != "kernel" {
		t.Errorf("SrcFuncs should list main and kernel in source order, got %v", fns)
	}
}

func ExampleInfo_WriteTo() {
	s := `package main
	func main() { }`

	conf := build.FromReader(strings.NewReader(s))
	info, err := conf.Build()
	if err != nil {
		log.Fatalf("SSA build failed: %v", err)
	}
	var buf bytes.Buffer
	info.WriteTo(&buf)
	fmt.Println(strings.Contains(buf.String(), "func main():"))
	// output:
	// true
}

// WriteAll includes synthetic functions left out of WriteTo.
func TestWriteAll(t *testing.T) {
	s := `package main
	func main() { }`

	info, err := build.FromReader(strings.NewReader(s)).Build()
	if err != nil {
		t.Fatalf("SSA build failed: %v", err)
	}
	var src, all bytes.Buffer
	if _, err := info.WriteTo(&src); err != nil {
		t.Fatalf("cannot write SSA: %v", err)
	}
	if _, err := info.WriteAll(&all); err != nil {
		t.Fatalf("cannot write SSA: %v", err)
	}
	const init = "# Synthetic: package initializer"
	if strings.Contains(src.String(), init) {
		t.Errorf("WriteTo should skip the package initializer, got:\n%s\n", src.String())
	}
	for _, want := range []string{init, "func main():"} {
		if !strings.Contains(all.String(), want) {
			t.Errorf("WriteAll should contain %q, got:\n%s\n", want, all.String())
		}
	}
}
