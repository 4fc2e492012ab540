package access

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/asthra-lang/ampu/internal/errs"
	"github.com/asthra-lang/ampu/internal/importscan"
)

func TestCheckMatrix(t *testing.T) {
	cases := []struct {
		importer importscan.PackageKind
		imp      importscan.Kind
		wantErr  bool
	}{
		{importscan.UserCode, importscan.Internal, true},
		{importscan.PkgThirdParty, importscan.Internal, true},
		{importscan.UserCode, importscan.Stdlib, false},
		{importscan.UserCode, importscan.ThirdParty, false},
		{importscan.UserCode, importscan.Local, false},
		{importscan.PkgInternal, importscan.Internal, false},
		{importscan.PkgStdlib, importscan.Internal, false},
		{importscan.PkgThirdParty, importscan.Stdlib, false},
	}
	for _, tc := range cases {
		err := Check(tc.importer, tc.imp)
		if (err != nil) != tc.wantErr {
			t.Errorf("Check(%v, %v) = %v, wantErr %v", tc.importer, tc.imp, err, tc.wantErr)
		}
	}
}

func TestCheckProjectUserCodeToInternal(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatal(err)
	}
	main := "package main\n\nimport \"internal/runtime/mem\"\n"
	if err := os.WriteFile(filepath.Join(srcDir, "main.asthra"), []byte(main), 0644); err != nil {
		t.Fatal(err)
	}
	violations, err := CheckProject(dir)
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1: %+v", len(violations), violations)
	}
	v := violations[0]
	if v.Line != 3 {
		t.Errorf("Line = %d, want 3", v.Line)
	}
	if v.Edge.ImporterKind != "UserCode" || v.Edge.ImportKind != "Internal" {
		t.Errorf("Edge = %+v, want UserCode->Internal", v.Edge)
	}
}

func TestCheckProjectNoViolations(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatal(err)
	}
	main := "package main\n\nimport \"stdlib/string\"\nimport \"github.com/u/r\"\n"
	if err := os.WriteFile(filepath.Join(srcDir, "main.asthra"), []byte(main), 0644); err != nil {
		t.Fatal(err)
	}
	violations, err := CheckProject(dir)
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("got %d violations, want 0: %+v", len(violations), violations)
	}
}

func TestCheckProjectAccumulatesAll(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatal(err)
	}
	a := "package a\n\nimport \"internal/x\"\n"
	b := "package b\n\nimport \"internal/y\"\n"
	if err := os.WriteFile(filepath.Join(srcDir, "a.asthra"), []byte(a), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "b.asthra"), []byte(b), 0644); err != nil {
		t.Fatal(err)
	}
	violations, err := CheckProject(dir)
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("got %d violations, want 2 (no short-circuit): %+v", len(violations), violations)
	}
}

func TestCheckProjectRejectsWhitespaceOnlyImportPath(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatal(err)
	}
	main := "package main\n\nimport \"   \"\n"
	if err := os.WriteFile(filepath.Join(srcDir, "main.asthra"), []byte(main), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := CheckProject(dir)
	if err == nil {
		t.Fatal("CheckProject: want error for whitespace-only import path")
	}
	var bad *errs.BadImportPath
	if !errors.As(err, &bad) {
		t.Errorf("CheckProject error = %v, want *errs.BadImportPath", err)
	}
}
