package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// E2EAsmTestSpec represents a single end-to-end assembly test case
type E2EAsmTestSpec struct {
	Name         string   `yaml:"name"`
	Input        string   `yaml:"input"`
	Expect       []string `yaml:"expect"`        // Strings that must appear in output
	ExpectOrder  []string `yaml:"expect_order"`  // Strings that must appear in this order
	ExpectUnique []string `yaml:"expect_unique"` // Strings that must appear exactly once
	ExpectNot    []string `yaml:"expect_not"`    // Strings that must NOT appear in output
	Skip         string   `yaml:"skip,omitempty"`
}

// E2EAsmTestFile represents the e2e_asm.yaml file structure
type E2EAsmTestFile struct {
	Tests []E2EAsmTestSpec `yaml:"tests"`
}

// compileToAsm runs minicc -S -A on the given source and returns the
// assembly text
func compileToAsm(t *testing.T, source string) string {
	t.Helper()
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "test.c")
	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"-S", "-A", srcPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("minicc failed: %v\nStderr: %s", err, errOut.String())
	}
	return out.String()
}

// TestE2EAsmYAML checks MiniC to ARM32 assembly generation against the
// yaml test cases
func TestE2EAsmYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/e2e_asm.yaml")
	if err != nil {
		t.Fatalf("e2e_asm.yaml not found: %v", err)
	}

	var testFile E2EAsmTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e_asm.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}

			output := compileToAsm(t, tc.Input)

			for _, exp := range tc.Expect {
				if !strings.Contains(output, exp) {
					t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
				}
			}

			if len(tc.ExpectOrder) > 0 {
				lastIdx := -1
				for _, exp := range tc.ExpectOrder {
					idx := strings.Index(output, exp)
					if idx == -1 {
						t.Errorf("expected output to contain %q for order check\nGot:\n%s", exp, output)
					} else if idx <= lastIdx {
						t.Errorf("expected %q to appear after previous pattern (position %d vs %d)\nGot:\n%s", exp, idx, lastIdx, output)
					}
					lastIdx = idx
				}
			}

			for _, exp := range tc.ExpectUnique {
				count := strings.Count(output, exp)
				if count != 1 {
					t.Errorf("expected %q to appear exactly once, found %d times\nGot:\n%s", exp, count, output)
				}
			}

			for _, exp := range tc.ExpectNot {
				if strings.Contains(output, exp) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", exp, output)
				}
			}
		})
	}
}

// E2ERuntimeTestSpec represents a single end-to-end runtime test case
type E2ERuntimeTestSpec struct {
	Name         string `yaml:"name"`
	Input        string `yaml:"input"`
	ExpectedExit int    `yaml:"expected_exit"`
	Skip         string `yaml:"skip,omitempty"`
}

// E2ERuntimeTestFile represents the e2e_runtime.yaml file structure
type E2ERuntimeTestFile struct {
	Tests []E2ERuntimeTestSpec `yaml:"tests"`
}

// TestE2ERuntimeYAML assembles, links and runs the compiled programs,
// checking exit codes. It needs an ARM32 execution environment and a
// native toolchain, so it is skipped elsewhere.
func TestE2ERuntimeYAML(t *testing.T) {
	if runtime.GOARCH != "arm" {
		t.Skip("runtime tests need an ARM32 host")
	}
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not found in PATH")
	}

	data, err := os.ReadFile("../../testdata/e2e_runtime.yaml")
	if err != nil {
		t.Fatalf("e2e_runtime.yaml not found: %v", err)
	}

	var testFile E2ERuntimeTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e_runtime.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}

			tmpDir := t.TempDir()
			sPath := filepath.Join(tmpDir, "test.s")
			exePath := filepath.Join(tmpDir, "test")

			asm := compileToAsm(t, tc.Input)
			if err := os.WriteFile(sPath, []byte(asm), 0644); err != nil {
				t.Fatalf("failed to write assembly: %v", err)
			}

			// Assemble and link against the C runtime
			gccCmd := exec.Command("gcc", "-o", exePath, sPath)
			if output, err := gccCmd.CombinedOutput(); err != nil {
				t.Fatalf("gcc failed: %v\nOutput: %s\nAssembly:\n%s", err, output, asm)
			}

			runCmd := exec.Command(exePath)
			runCmd.Run() // exit code carries the result
			exitCode := runCmd.ProcessState.ExitCode()

			if exitCode != tc.ExpectedExit {
				t.Errorf("expected exit code %d, got %d\nAssembly:\n%s", tc.ExpectedExit, exitCode, asm)
			}
		})
	}
}
