package driver

import (
	"strings"
	"testing"

	"github.com/Bintaryam/c4-go/pkg/compiler"
	"github.com/Bintaryam/c4-go/pkg/lexer"
	"github.com/Bintaryam/c4-go/pkg/parser"
	"github.com/Bintaryam/c4-go/pkg/vm"
)

type runTestCase struct {
	name     string
	input    string
	expected int64
}

func runDriverTests(t *testing.T, tests []runTestCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(tt.input)
			if err != nil {
				t.Fatalf("run error: %s", err)
			}
			if got != tt.expected {
				t.Fatalf("wrong result. expected=%d, got=%d", tt.expected, got)
			}
		})
	}
}

func TestRunPrograms(t *testing.T) {
	tests := []runTestCase{
		{
			"return literal",
			"int main() { return 42; }",
			42,
		},
		{
			"arithmetic precedence",
			"int main() { return 2 + 3 * 4 - 10 / 2; }",
			9,
		},
		{
			"locals and assignment chains",
			"int main() { int a, b; a = b = 7; return a + b; }",
			14,
		},
		{
			"while loop sum",
			"int main() { int i, sum; i = 0; sum = 0; while (i < 10) { sum = sum + i; i++; } return sum; }",
			45,
		},
		{
			"recursion",
			`int fib(int n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
			 int main() { return fib(10); }`,
			55,
		},
		{
			"mutual recursion",
			`int even(int n) { if (n == 0) return 1; return odd(n - 1); }
			 int odd(int n) { if (n == 0) return 0; return even(n - 1); }
			 int main() { return even(10); }`,
			1,
		},
		{
			"pointers",
			"int main() { int x; int *p; x = 3; p = &x; *p = 7; return x; }",
			7,
		},
		{
			"string indexing",
			`int main() { char *s; s = "abc"; return s[1]; }`,
			98,
		},
		{
			"pointer arithmetic walks cells",
			`int main() { char *s; s = "abc"; return *(s + 2); }`,
			99,
		},
		{
			"globals shared across functions",
			"int g; void set() { g = 9; } int main() { set(); return g; }",
			9,
		},
		{
			"enum constants",
			"enum { A, B = 5, C }; int main() { return A + B + C; }",
			11,
		},
		{
			"sizeof is one cell",
			"int main() { return sizeof(int) + sizeof(char) + sizeof(int**); }",
			3,
		},
		{
			"ternary",
			"int main() { int x; x = 5; return x > 3 ? 10 : 20; }",
			10,
		},
		{
			"logical and short-circuits",
			"int main() { int x; x = 0; 0 && (x = 1); return x; }",
			0,
		},
		{
			"logical or short-circuits",
			"int main() { int x; x = 0; 1 || (x = 1); return x; }",
			0,
		},
		{
			"char cast masks",
			"int main() { return (char)300; }",
			44,
		},
		{
			"char variables mask on store",
			"int main() { char c; c = 300; return c; }",
			44,
		},
		{
			"pre and post increment",
			"int main() { int i; i = 5; i++; ++i; return i++; }",
			7,
		},
		{
			"hex and octal literals",
			"int main() { return 0x10 + 010; }",
			24,
		},
		{
			"char literals",
			"int main() { return 'z' - 'a'; }",
			25,
		},
		{
			"exit stops immediately",
			"int main() { exit(3); return 0; }",
			3,
		},
		{
			"bitwise mix",
			"int main() { return (12 & 10) | (1 << 4) ^ 2; }",
			26,
		},
		{
			"dangling else binds inner",
			"int main() { int x; x = 0; if (1) if (0) x = 1; else x = 2; return x; }",
			2,
		},
		{
			"malloc and memset",
			`int main() { char *p; p = malloc(4); memset(p, 7, 4); return p[0] + p[3]; }`,
			14,
		},
		{
			"memcmp equal",
			`int main() { return memcmp("abc", "abc", 3); }`,
			0,
		},
	}

	runDriverTests(t, tests)
}

func TestPrintfOutput(t *testing.T) {
	src := `int main() { printf("fib(%d) = %d, %s%c\n", 7, 13, "done", 33); return 0; }`

	host := vm.NewDefaultHost()
	var out strings.Builder
	host.Stdout = &out

	if _, err := RunWithOptions(src, vm.Options{Host: host}); err != nil {
		t.Fatalf("run error: %s", err)
	}
	if got := out.String(); got != "fib(7) = 13, done!\n" {
		t.Errorf("output=%q, want %q", got, "fib(7) = 13, done!\n")
	}
}

func TestErrorKinds(t *testing.T) {
	// each stage reports failures through its own error type
	if _, err := Run("int main() { return $; }"); err == nil {
		t.Error("expected lexer error")
	} else if _, ok := err.(*lexer.Error); !ok {
		t.Errorf("error has type %T, want *lexer.Error", err)
	}

	if _, err := Run("int main() { return 1 }"); err == nil {
		t.Error("expected parser error")
	} else if _, ok := err.(*parser.Error); !ok {
		t.Errorf("error has type %T, want *parser.Error", err)
	}

	if _, err := Run("int main() { return nope; }"); err == nil {
		t.Error("expected compiler error")
	} else if _, ok := err.(*compiler.Error); !ok {
		t.Errorf("error has type %T, want *compiler.Error", err)
	}

	if _, err := Run("int main() { return 1 / 0; }"); err == nil {
		t.Error("expected runtime fault")
	} else if _, ok := err.(*vm.Fault); !ok {
		t.Errorf("error has type %T, want *vm.Fault", err)
	}
}

func TestDeepRecursionOverflows(t *testing.T) {
	src := `int spin(int n) { return spin(n + 1); } int main() { return spin(0); }`
	_, err := RunWithOptions(src, vm.Options{StackSize: 256})
	fault, ok := err.(*vm.Fault)
	if !ok {
		t.Fatalf("error has type %T, want *vm.Fault", err)
	}
	if !strings.Contains(fault.Message, "stack overflow") {
		t.Errorf("fault %q, want stack overflow", fault.Message)
	}
}
