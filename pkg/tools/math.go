package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	models "github.com/XiaoConstantine/mcp-go/pkg/model"
)

// MathToolset returns the built-in tools for arithmetic word problems:
// linear and quadratic equation solving, descriptive statistics, integer
// base conversion, and numeric inequality checking.
//
// Argument values may arrive as strings because the XML action format the
// reasoning engine uses carries no type information; every tool coerces its
// numeric arguments itself. Domain failures (a zero leading coefficient, a
// negative discriminant, an out-of-range base) come back as error results,
// not Go errors, so the engine can show them to the model as observations.
func MathToolset() []core.Tool {
	return []core.Tool{
		solveLinearTool(),
		solveQuadraticTool(),
		statisticsTool(),
		convertBaseTool(),
		checkInequalityTool(),
	}
}

// RegisterMathToolset registers the math toolset in the given registry.
func RegisterMathToolset(registry core.ToolRegistry) error {
	for _, tool := range MathToolset() {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func solveLinearTool() *FuncTool {
	return NewFuncTool(
		"solve_linear",
		"Solve the linear equation a*x + b = c for x",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"a": {
					Type:        "number",
					Description: "Coefficient of x (must be non-zero)",
					Required:    true,
				},
				"b": {
					Type:        "number",
					Description: "Constant added to the x term",
					Required:    true,
				},
				"c": {
					Type:        "number",
					Description: "Right-hand side of the equation",
					Required:    true,
				},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			a, err := floatArg(args, "a")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			b, err := floatArg(args, "b")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			c, err := floatArg(args, "c")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			if a == 0 {
				return ErrorResult("coefficient 'a' cannot be zero for a linear equation"), nil
			}

			result := struct {
				Equation string  `json:"equation"`
				X        float64 `json:"x"`
			}{
				Equation: fmt.Sprintf("%g*x + %g = %g", a, b, c),
				X:        round4((c - b) / a),
			}
			return jsonResult(result)
		},
	)
}

func solveQuadraticTool() *FuncTool {
	return NewFuncTool(
		"solve_quadratic",
		"Solve the quadratic equation a*x^2 + b*x + c = 0 and report roots, vertex, and extremum",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"a": {
					Type:        "number",
					Description: "Coefficient of x^2 (must be non-zero)",
					Required:    true,
				},
				"b": {
					Type:        "number",
					Description: "Coefficient of x",
					Required:    true,
				},
				"c": {
					Type:        "number",
					Description: "Constant term",
					Required:    true,
				},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			a, err := floatArg(args, "a")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			b, err := floatArg(args, "b")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			c, err := floatArg(args, "c")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			if a == 0 {
				return ErrorResult("coefficient 'a' cannot be zero for a quadratic equation"), nil
			}

			disc := b*b - 4*a*c
			if disc < 0 {
				return ErrorResult(fmt.Sprintf("no real roots: discriminant is negative (%g)", disc)), nil
			}

			var roots []float64
			h := -b / (2 * a)
			if disc == 0 {
				roots = []float64{round4(h)}
			} else {
				sq := math.Sqrt(disc)
				r1 := (-b - sq) / (2 * a)
				r2 := (-b + sq) / (2 * a)
				if r1 > r2 {
					r1, r2 = r2, r1
				}
				roots = []float64{round4(r1), round4(r2)}
			}

			k := a*h*h + b*h + c
			extremum := "Minimum"
			if a < 0 {
				extremum = "Maximum"
			}

			result := struct {
				Roots  []float64 `json:"roots"`
				Vertex struct {
					X float64 `json:"x"`
					Y float64 `json:"y"`
				} `json:"vertex"`
				AxisOfSymmetry string `json:"axis_of_symmetry"`
				Extremum       string `json:"extremum"`
			}{
				Roots:          roots,
				AxisOfSymmetry: fmt.Sprintf("x = %g", round4(h)),
				Extremum:       extremum,
			}
			result.Vertex.X = round4(h)
			result.Vertex.Y = round4(k)
			return jsonResult(result)
		},
	)
}

func statisticsTool() *FuncTool {
	return NewFuncTool(
		"statistics",
		"Calculate descriptive statistics (mean, median, quartiles, IQR, variance, standard deviation) for a list of numbers",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"data": {
					Type:        "string",
					Description: "JSON array of numbers, e.g. [48, 53, 65, 69, 70]",
					Required:    true,
				},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			raw := stringArg(args, "data")

			var values []float64
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return ErrorResult(fmt.Sprintf("data must be a JSON array of numbers, got %q", raw)), nil
			}
			if len(values) == 0 {
				return ErrorResult("data must contain at least one number"), nil
			}

			sorted := append([]float64(nil), values...)
			sort.Float64s(sorted)

			var sum float64
			for _, v := range values {
				sum += v
			}
			mean := sum / float64(len(values))

			var sqSum float64
			for _, v := range values {
				d := v - mean
				sqSum += d * d
			}
			variance := sqSum / float64(len(values)) // population variance

			q1 := percentile(sorted, 25)
			q3 := percentile(sorted, 75)

			result := struct {
				Count    int     `json:"count"`
				Mean     float64 `json:"mean"`
				Range    float64 `json:"range"`
				Q1       float64 `json:"q1"`
				Median   float64 `json:"median"`
				Q3       float64 `json:"q3"`
				IQR      float64 `json:"interquartile_range"`
				Variance float64 `json:"variance"`
				StdDev   float64 `json:"standard_deviation"`
			}{
				Count:    len(values),
				Mean:     round4(mean),
				Range:    round4(sorted[len(sorted)-1] - sorted[0]),
				Q1:       round4(q1),
				Median:   round4(percentile(sorted, 50)),
				Q3:       round4(q3),
				IQR:      round4(q3 - q1),
				Variance: round4(variance),
				StdDev:   round4(math.Sqrt(variance)),
			}
			return jsonResult(result)
		},
	)
}

func convertBaseTool() *FuncTool {
	return NewFuncTool(
		"convert_base",
		"Convert an integer between number bases 2 through 10",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"number": {
					Type:        "string",
					Description: "The number to convert, written in the source base",
					Required:    true,
				},
				"from_base": {
					Type:        "number",
					Description: "Source base (2-10)",
					Required:    true,
				},
				"to_base": {
					Type:        "number",
					Description: "Target base (2-10)",
					Required:    true,
				},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			number := strings.TrimSpace(stringArg(args, "number"))
			fromBase, err := intArg(args, "from_base")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			toBase, err := intArg(args, "to_base")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			if fromBase < 2 || fromBase > 10 || toBase < 2 || toBase > 10 {
				return ErrorResult("bases must be between 2 and 10"), nil
			}
			if number == "" {
				return ErrorResult("number must not be empty"), nil
			}
			for _, r := range number {
				if r < '0' || r >= '0'+rune(fromBase) {
					return ErrorResult(fmt.Sprintf("%q contains invalid digits for base %d", number, fromBase)), nil
				}
			}

			decimal, perr := strconv.ParseInt(number, fromBase, 64)
			if perr != nil {
				return ErrorResult(fmt.Sprintf("cannot parse %q as a base %d integer", number, fromBase)), nil
			}

			result := struct {
				Number   string `json:"number"`
				FromBase int    `json:"from_base"`
				ToBase   int    `json:"to_base"`
				Result   string `json:"result"`
			}{
				Number:   number,
				FromBase: fromBase,
				ToBase:   toBase,
				Result:   strconv.FormatInt(decimal, toBase),
			}
			return jsonResult(result)
		},
	)
}

func checkInequalityTool() *FuncTool {
	return NewFuncTool(
		"check_inequality",
		"Check whether a numeric comparison holds, e.g. left <= right",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"left": {
					Type:        "number",
					Description: "Left-hand value",
					Required:    true,
				},
				"op": {
					Type:        "string",
					Description: "Comparison operator: <, <=, >, >=, =, !=",
					Required:    true,
				},
				"right": {
					Type:        "number",
					Description: "Right-hand value",
					Required:    true,
				},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			left, err := floatArg(args, "left")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			right, err := floatArg(args, "right")
			if err != nil {
				return ErrorResult(err.Error()), nil
			}
			op := strings.TrimSpace(stringArg(args, "op"))

			var holds bool
			switch op {
			case "<":
				holds = left < right
			case "<=", "=<":
				holds = left <= right
			case ">":
				holds = left > right
			case ">=", "=>":
				holds = left >= right
			case "=", "==":
				holds = left == right
			case "!=", "<>":
				holds = left != right
			default:
				return ErrorResult(fmt.Sprintf("unknown operator %q: use <, <=, >, >=, =, or !=", op)), nil
			}

			result := struct {
				Statement string `json:"statement"`
				Holds     bool   `json:"holds"`
			}{
				Statement: fmt.Sprintf("%g %s %g", left, op, right),
				Holds:     holds,
			}
			return jsonResult(result)
		},
	)
}

// percentile interpolates linearly between closest ranks, matching the
// numpy default the reference statistics were computed with.
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 < len(sorted) {
		return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
	}
	return sorted[lo]
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func jsonResult(v interface{}) (*models.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return TextResult(string(data)), nil
}

func floatArg(args map[string]interface{}, name string) (float64, error) {
	switch v := args[name].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be a number, got %q", name, v)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("parameter %q is missing", name)
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", name, v)
	}
}

func intArg(args map[string]interface{}, name string) (int, error) {
	f, err := floatArg(args, name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parameter %q must be an integer, got %g", name, f)
	}
	return int(f), nil
}

func stringArg(args map[string]interface{}, name string) string {
	switch v := args[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
