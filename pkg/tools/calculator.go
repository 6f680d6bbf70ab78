package tools

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CalculatorTool evaluates arithmetic expressions locally, including the
// spoken forms voice transcription produces ("what is 15% of 200",
// "12 times 4").
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

func (t *CalculatorTool) Name() string { return "calculate" }

func (t *CalculatorTool) Description() string {
	return "Evaluate a math expression. Supports +, -, *, /, %, parentheses, percent-of phrasing and functions sqrt, abs, min, max, pow, round."
}

func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The expression to evaluate, e.g. '15% of 200' or 'sqrt(144) + 2'",
			},
		},
		"required": []string{"expression"},
	}
}

var percentOfPattern = regexp.MustCompile(`(?i)([\d.]+)\s*%\s*of\s*([\d.]+)`)

var spokenOperators = []struct{ spoken, symbol string }{
	{"divided by", "/"},
	{"multiplied by", "*"},
	{"times", "*"},
	{"plus", "+"},
	{"minus", "-"},
	{"over", "/"},
	{"x", "*"},
}

func (t *CalculatorTool) Execute(ctx context.Context, args map[string]any) *Result {
	expr := strings.TrimSpace(stringArg(args, "expression"))
	if expr == "" {
		return Fail("expression is required")
	}

	normalized := normalizeExpression(expr)
	value, err := evalExpression(normalized)
	if err != nil {
		return Fail(fmt.Sprintf("could not evaluate %q: %v", expr, err))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Fail(fmt.Sprintf("%q has no finite result", expr))
	}

	return Ok(map[string]any{
		"expression": expr,
		"result":     value,
		"spoken":     formatNumber(value),
	})
}

// normalizeExpression rewrites spoken-language math into evaluator syntax.
func normalizeExpression(expr string) string {
	out := strings.ToLower(expr)
	out = strings.TrimPrefix(out, "what is ")
	out = strings.TrimPrefix(out, "what's ")
	out = strings.TrimSuffix(out, "?")

	// "15% of 200" -> "(15/100)*200"
	out = percentOfPattern.ReplaceAllString(out, "($1/100)*$2")

	for _, op := range spokenOperators {
		if op.spoken == "x" {
			// Only substitute a lone x between spaces, not inside words.
			out = strings.ReplaceAll(out, " x ", " * ")
			continue
		}
		out = strings.ReplaceAll(out, op.spoken, op.symbol)
	}
	return strings.TrimSpace(out)
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ---- expression evaluator ----

type exprParser struct {
	input string
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	value, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseAddSub() (float64, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseMulDiv()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseMulDiv()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseMulDiv() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		value, err := p.parseUnary()
		return -value, err
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		value, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case c >= 'a' && c <= 'z':
		return p.parseIdentifier()
	case c == 0:
		return 0, fmt.Errorf("unexpected end of expression")
	}
	return 0, fmt.Errorf("unexpected %q at position %d", c, p.pos)
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *exprParser) parseIdentifier() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= 'a' && p.input[p.pos] <= 'z' {
		p.pos++
	}
	name := p.input[start:p.pos]

	switch name {
	case "pi":
		return math.Pi, nil
	case "e":
		return math.E, nil
	}

	if p.peek() != '(' {
		return 0, fmt.Errorf("unknown identifier %q", name)
	}
	p.pos++
	first, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	args := []float64{first}
	for p.peek() == ',' {
		p.pos++
		next, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		args = append(args, next)
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("missing closing parenthesis after %s", name)
	}
	p.pos++

	return applyFunction(name, args)
}

func applyFunction(name string, args []float64) (float64, error) {
	unary := func() (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s expects one argument", name)
		}
		return args[0], nil
	}
	binary := func() (float64, float64, error) {
		if len(args) != 2 {
			return 0, 0, fmt.Errorf("%s expects two arguments", name)
		}
		return args[0], args[1], nil
	}

	switch name {
	case "sqrt":
		v, err := unary()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("sqrt of negative number")
		}
		return math.Sqrt(v), nil
	case "abs":
		v, err := unary()
		if err != nil {
			return 0, err
		}
		return math.Abs(v), nil
	case "round":
		v, err := unary()
		if err != nil {
			return 0, err
		}
		return math.Round(v), nil
	case "min":
		a, b, err := binary()
		if err != nil {
			return 0, err
		}
		return math.Min(a, b), nil
	case "max":
		a, b, err := binary()
		if err != nil {
			return 0, err
		}
		return math.Max(a, b), nil
	case "pow":
		a, b, err := binary()
		if err != nil {
			return 0, err
		}
		return math.Pow(a, b), nil
	}
	return 0, fmt.Errorf("unknown function %q", name)
}
