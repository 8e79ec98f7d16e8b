package command

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Math answers arithmetic and unit-conversion questions: "what's 347 times
// 23", "what is 15% of 85", "how many tablespoons in a quarter cup",
// "convert 72 fahrenheit to celsius".
type Math struct{}

func NewMath() *Math { return &Math{} }

func (m *Math) Name() string { return "math" }

// --- Word numbers and fractions ---

type numWord struct {
	word string
	val  float64
}

var mathWordNums = []numWord{
	{"zero", 0}, {"one", 1}, {"two", 2}, {"three", 3}, {"four", 4},
	{"five", 5}, {"six", 6}, {"seven", 7}, {"eight", 8}, {"nine", 9},
	{"ten", 10}, {"eleven", 11}, {"twelve", 12}, {"thirteen", 13},
	{"fourteen", 14}, {"fifteen", 15}, {"sixteen", 16}, {"seventeen", 17},
	{"eighteen", 18}, {"nineteen", 19}, {"twenty", 20}, {"thirty", 30},
	{"forty", 40}, {"fifty", 50}, {"sixty", 60}, {"seventy", 70},
	{"eighty", 80}, {"ninety", 90}, {"hundred", 100}, {"thousand", 1000},
	{"million", 1e6}, {"a", 1}, {"an", 1},
}

// Longest phrases first so "three quarters" wins over "quarter".
var mathFractions = []numWord{
	{"three quarters", 0.75}, {"three fourths", 0.75},
	{"one quarter", 0.25}, {"one fourth", 0.25}, {"one eighth", 0.125},
	{"two thirds", 2.0 / 3}, {"one third", 1.0 / 3}, {"one half", 0.5},
	{"a quarter", 0.25}, {"a fourth", 0.25}, {"an eighth", 0.125},
	{"a third", 1.0 / 3}, {"a half", 0.5},
	{"quarter", 0.25}, {"fourth", 0.25}, {"eighth", 0.125},
	{"third", 1.0 / 3}, {"half", 0.5},
}

func lookupFraction(s string) (float64, bool) {
	for _, f := range mathFractions {
		if s == f.word {
			return f.val, true
		}
	}
	return 0, false
}

var numAndFracRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+and\s+(.+)$`)

// parseNumber parses a spoken or written number: "347", "1,234", "a quarter",
// "2 and a half", "seven".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")

	if n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		return n, true
	}
	if f, ok := lookupFraction(s); ok {
		return f, true
	}
	if m := numAndFracRe.FindStringSubmatch(s); m != nil {
		if f, ok := lookupFraction(strings.TrimSpace(m[2])); ok {
			whole, _ := strconv.ParseFloat(m[1], 64)
			return whole + f, true
		}
	}
	for _, w := range mathWordNums {
		if s == w.word {
			return w.val, true
		}
	}
	return 0, false
}

// --- Units ---

type unitDim int

const (
	dimLength unitDim = iota
	dimMass
	dimVolume
	dimTemp
)

type unitDef struct {
	dim      unitDim
	factor   float64 // multiplier to the dimension's base unit
	singular string
	plural   string
}

// Canonical units keyed by internal name. Volume is in liters, length in
// meters, mass in grams.
var mathUnits = map[string]unitDef{
	"inch":        {dimLength, 0.0254, "inch", "inches"},
	"foot":        {dimLength, 0.3048, "foot", "feet"},
	"yard":        {dimLength, 0.9144, "yard", "yards"},
	"mile":        {dimLength, 1609.344, "mile", "miles"},
	"millimeter":  {dimLength, 0.001, "millimeter", "millimeters"},
	"centimeter":  {dimLength, 0.01, "centimeter", "centimeters"},
	"meter":       {dimLength, 1, "meter", "meters"},
	"kilometer":   {dimLength, 1000, "kilometer", "kilometers"},
	"ounce":       {dimMass, 28.349523125, "ounce", "ounces"},
	"pound":       {dimMass, 453.59237, "pound", "pounds"},
	"gram":        {dimMass, 1, "gram", "grams"},
	"kilogram":    {dimMass, 1000, "kilogram", "kilograms"},
	"teaspoon":    {dimVolume, 0.00492892159375, "teaspoon", "teaspoons"},
	"tablespoon":  {dimVolume, 0.01478676478125, "tablespoon", "tablespoons"},
	"fluid_ounce": {dimVolume, 0.0295735295625, "fluid ounce", "fluid ounces"},
	"cup":         {dimVolume, 0.2365882365, "cup", "cups"},
	"pint":        {dimVolume, 0.473176473, "pint", "pints"},
	"quart":       {dimVolume, 0.946352946, "quart", "quarts"},
	"gallon":      {dimVolume, 3.785411784, "gallon", "gallons"},
	"milliliter":  {dimVolume, 0.001, "milliliter", "milliliters"},
	"liter":       {dimVolume, 1, "liter", "liters"},
	"degF":        {dimTemp, 0, "degree Fahrenheit", "degrees Fahrenheit"},
	"degC":        {dimTemp, 0, "degree Celsius", "degrees Celsius"},
	"kelvin":      {dimTemp, 0, "kelvin", "kelvin"},
}

// Spoken aliases, Whisper-friendly.
var mathUnitAliases = map[string]string{
	"fahrenheit": "degF", "degrees fahrenheit": "degF",
	"celsius": "degC", "degrees celsius": "degC", "centigrade": "degC",
	"tablespoons": "tablespoon", "tbsp": "tablespoon",
	"teaspoons": "teaspoon", "tsp": "teaspoon",
	"cups":         "cup",
	"ounces":       "ounce", "oz": "ounce",
	"fluid ounces": "fluid_ounce", "fluid ounce": "fluid_ounce",
	"pounds": "pound", "lbs": "pound",
	"grams":     "gram",
	"kilograms": "kilogram", "kilos": "kilogram",
	"liters": "liter", "litres": "liter",
	"milliliters": "milliliter", "millilitres": "milliliter", "ml": "milliliter",
	"gallons": "gallon",
	"quarts":  "quart",
	"pints":   "pint",
	"inches":  "inch",
	"feet":    "foot",
	"yards":   "yard",
	"miles":   "mile",
	"meters":  "meter", "metres": "meter",
	"centimeters": "centimeter", "centimetres": "centimeter", "cm": "centimeter",
	"millimeters": "millimeter", "millimetres": "millimeter", "mm": "millimeter",
	"kilometers": "kilometer", "kilometres": "kilometer", "km": "kilometer",
}

func resolveUnit(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if name, ok := mathUnitAliases[s]; ok {
		return name, true
	}
	if _, ok := mathUnits[s]; ok {
		return s, true
	}
	return "", false
}

func toCelsius(v float64, unit string) float64 {
	switch unit {
	case "degF":
		return (v - 32) * 5 / 9
	case "kelvin":
		return v - 273.15
	}
	return v
}

func fromCelsius(c float64, unit string) float64 {
	switch unit {
	case "degF":
		return c*9/5 + 32
	case "kelvin":
		return c + 273.15
	}
	return c
}

// convertUnits converts a value between two known units. Fails across
// dimensions (cups to miles).
func convertUnits(val float64, from, to string) (float64, bool) {
	src, ok := mathUnits[from]
	if !ok {
		return 0, false
	}
	dst, ok := mathUnits[to]
	if !ok {
		return 0, false
	}
	if src.dim == dimTemp || dst.dim == dimTemp {
		if src.dim != dimTemp || dst.dim != dimTemp {
			return 0, false
		}
		return fromCelsius(toCelsius(val, from), to), true
	}
	if src.dim != dst.dim {
		return 0, false
	}
	return val * src.factor / dst.factor, true
}

// --- Formatting ---

// groupDigits inserts thousands separators into an unsigned integer string.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

var speechFractions = []numWord{
	{"a half", 0.5}, {"a third", 1.0 / 3}, {"two thirds", 2.0 / 3},
	{"a quarter", 0.25}, {"three quarters", 0.75}, {"an eighth", 0.125},
}

// speakNumber formats a number for speech: whole numbers with separators,
// clean fractions by name, otherwise up to four trimmed decimals.
func speakNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		neg := ""
		if n < 0 {
			neg = "-"
			n = -n
		}
		return neg + groupDigits(strconv.FormatFloat(n, 'f', 0, 64))
	}
	for _, f := range speechFractions {
		if math.Abs(n-f.val) < 1e-9 {
			return f.word
		}
	}
	if math.Abs(n) >= 0.01 {
		s := strconv.FormatFloat(n, 'f', 4, 64)
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		if dot := strings.IndexByte(s, '.'); dot > 0 {
			return groupDigits(s[:dot]) + s[dot:]
		}
		return groupDigits(s)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// speakUnit picks the singular form for quantities of one or less, so
// "a quarter cup" reads naturally.
func speakUnit(name string, value float64) string {
	def, ok := mathUnits[name]
	if !ok {
		return strings.ReplaceAll(name, "_", " ")
	}
	if value > 1+1e-9 {
		return def.plural
	}
	return def.singular
}

// --- Unit conversion queries ---

var (
	howManyRe   = regexp.MustCompile(`how\s+many\s+(\w[\w\s]*?)\s+(?:are\s+)?in\s+(.+)`)
	convertRe   = regexp.MustCompile(`convert\s+(.+?)\s+to\s+(\w[\w\s]*?)$`)
	whatIsInRe  = regexp.MustCompile(`what(?:'s|\s+is)\s+(.+?)\s+in\s+(\w[\w\s]*?)$`)
	numUnitRe   = regexp.MustCompile(`^([\d,]+(?:\.\d+)?)\s+(.+)$`)
	ofAPrefixRe = regexp.MustCompile(`^of\s+(?:a|an)\s+`)
	andFracRe   = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+and\s+(\w+(?:\s+\w+)?)\s+(.+)$`)
)

func tryUnitConversion(text string) (string, bool) {
	t := strings.TrimRight(strings.TrimSpace(strings.ToLower(text)), "?.")

	if m := howManyRe.FindStringSubmatch(t); m != nil {
		return doConversion(strings.TrimSpace(m[2]), strings.TrimSpace(m[1]))
	}
	if m := convertRe.FindStringSubmatch(t); m != nil {
		return doConversion(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := whatIsInRe.FindStringSubmatch(t); m != nil {
		return doConversion(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	return "", false
}

func doConversion(sourceRaw, targetRaw string) (string, bool) {
	target, ok := resolveUnit(targetRaw)
	if !ok {
		return "", false
	}
	val, srcRaw, ok := splitQuantity(sourceRaw)
	if !ok {
		return "", false
	}
	source, ok := resolveUnit(srcRaw)
	if !ok {
		return "", false
	}
	result, ok := convertUnits(val, source, target)
	if !ok {
		return "", false
	}

	srcName := speakUnit(source, val)
	dstName := speakUnit(target, result)
	if mathUnits[source].dim == dimTemp || mathUnits[target].dim == dimTemp {
		return fmt.Sprintf("%s %s is %s %s.",
			speakNumber(val), srcName, speakNumber(result), dstName), true
	}
	return fmt.Sprintf("There are %s %s in %s %s.",
		speakNumber(result), dstName, speakNumber(val), srcName), true
}

// splitQuantity splits "a quarter cup" into (0.25, "cup").
func splitQuantity(text string) (float64, string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))

	if m := numUnitRe.FindStringSubmatch(t); m != nil {
		if val, ok := parseNumber(m[1]); ok {
			return val, strings.TrimSpace(m[2]), true
		}
	}

	// "a quarter cup", "a quarter of a cup"
	for _, f := range mathFractions {
		if rest, ok := strings.CutPrefix(t, f.word+" "); ok {
			rest = ofAPrefixRe.ReplaceAllString(strings.TrimSpace(rest), "")
			if rest != "" {
				return f.val, rest, true
			}
		}
	}

	// "2 and a half cups"
	if m := andFracRe.FindStringSubmatch(t); m != nil {
		if frac, ok := lookupFraction(strings.TrimSpace(m[2])); ok {
			whole, _ := strconv.ParseFloat(m[1], 64)
			return whole + frac, strings.TrimSpace(m[3]), true
		}
	}

	// "a liter", "one cup", "an ounce"
	for _, w := range mathWordNums {
		if rest, ok := strings.CutPrefix(t, w.word+" "); ok {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return w.val, rest, true
			}
		}
	}

	// Bare unit with an implied quantity of one.
	if _, ok := resolveUnit(t); ok {
		return 1, t, true
	}
	return 0, "", false
}

// --- Arithmetic ---

type mathOp struct {
	word  string
	apply func(a, b float64) float64
}

// Longer operator phrases first so "divided by" wins over "by".
var mathOps = []mathOp{
	{"to the power of", math.Pow},
	{"multiplied by", func(a, b float64) float64 { return a * b }},
	{"divided by", func(a, b float64) float64 { return a / b }},
	{"raised to", math.Pow},
	{"subtract", func(a, b float64) float64 { return a - b }},
	{"times", func(a, b float64) float64 { return a * b }},
	{"minus", func(a, b float64) float64 { return a - b }},
	{"over", func(a, b float64) float64 { return a / b }},
	{"plus", func(a, b float64) float64 { return a + b }},
	{"and", func(a, b float64) float64 { return a + b }},
	{"x", func(a, b float64) float64 { return a * b }},
}

var mathOpRes = buildOpRes()

func buildOpRes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(mathOps))
	for i, op := range mathOps {
		res[i] = regexp.MustCompile(
			`([\d,]+(?:\.\d+)?)\s+` + regexp.QuoteMeta(op.word) + `\s+([\d,]+(?:\.\d+)?)`)
	}
	return res
}

func isDivision(word string) bool { return word == "divided by" || word == "over" }

var (
	sqrtRe    = regexp.MustCompile(`(?:the\s+)?square\s+root\s+of\s+([\d,]+(?:\.\d+)?)`)
	squaredRe = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s+squared`)
	cubedRe   = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s+cubed`)
	pctRe     = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*%\s*(?:of\s+)?([\d,]+(?:\.\d+)?)`)
	percentRe = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s+percent\s+of\s+([\d,]+(?:\.\d+)?)`)
)

func tryMath(text string) (string, bool) {
	t := strings.TrimRight(strings.TrimSpace(strings.ToLower(text)), "?.")

	if m := sqrtRe.FindStringSubmatch(t); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return fmt.Sprintf("The square root of %s is %s.",
				speakNumber(n), speakNumber(math.Sqrt(n))), true
		}
	}
	if m := squaredRe.FindStringSubmatch(t); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return fmt.Sprintf("%s squared is %s.", speakNumber(n), speakNumber(n*n)), true
		}
	}
	if m := cubedRe.FindStringSubmatch(t); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			return fmt.Sprintf("%s cubed is %s.", speakNumber(n), speakNumber(n*n*n)), true
		}
	}
	if m := pctRe.FindStringSubmatch(t); m != nil {
		pct, okA := parseNumber(m[1])
		base, okB := parseNumber(m[2])
		if okA && okB {
			return fmt.Sprintf("%s%% of %s is %s.",
				speakNumber(pct), speakNumber(base), speakNumber(pct/100*base)), true
		}
	}
	if m := percentRe.FindStringSubmatch(t); m != nil {
		pct, okA := parseNumber(m[1])
		base, okB := parseNumber(m[2])
		if okA && okB {
			return fmt.Sprintf("%s percent of %s is %s.",
				speakNumber(pct), speakNumber(base), speakNumber(pct/100*base)), true
		}
	}

	for i, op := range mathOps {
		m := mathOpRes[i].FindStringSubmatch(t)
		if m == nil {
			continue
		}
		a, okA := parseNumber(m[1])
		b, okB := parseNumber(m[2])
		if !okA || !okB {
			continue
		}
		if isDivision(op.word) && b == 0 {
			return "I can't divide by zero.", true
		}
		return fmt.Sprintf("%s %s %s is %s.",
			speakNumber(a), op.word, speakNumber(b), speakNumber(op.apply(a, b))), true
	}

	return "", false
}

// --- Classification ---

var (
	mathHowManyInRe = regexp.MustCompile(`\bhow\s+many\s+\w+.*\bin\b`)
	mathConvertRe   = regexp.MustCompile(`\bconvert\s+.+\s+to\b`)
	mathWhatInRe    = regexp.MustCompile(
		`\bwhat(?:'s|\s+is)\s+.+\s+in\s+(?:fahrenheit|celsius|feet|meters|` +
			`inches|cups|tablespoons|teaspoons|ounces|pounds|grams|kilograms|` +
			`liters|gallons|quarts|pints|miles|kilometers|centimeters|millimeters` +
			`|milliliters|yards)\b`)
	mathOpWordsRe = regexp.MustCompile(
		`\b(plus|minus|times|divided by|multiplied by|percent|squared|cubed` +
			`|square root|to the power)\b`)
	mathPctExprRe = regexp.MustCompile(`\d+\s*%\s*(?:of\s+)?\d+`)
)

func classifyMath(text string) string {
	t := strings.ToLower(text)
	switch {
	case mathHowManyInRe.MatchString(t), mathConvertRe.MatchString(t), mathWhatInRe.MatchString(t):
		return "unit"
	case mathOpWordsRe.MatchString(t), mathPctExprRe.MatchString(t):
		return "math"
	}
	return ""
}

func (m *Math) Parse(text string) *Result {
	switch classifyMath(text) {
	case "unit":
		return &Result{Command: "convert_units", Score: 0.9}
	case "math":
		return &Result{Command: "calculate", Score: 0.9}
	}
	return nil
}

func (m *Math) Handle(r *Result) string {
	switch r.Command {
	case "convert_units":
		if resp, ok := tryUnitConversion(r.Text); ok {
			return resp
		}
		// Classification can misfire; try arithmetic before giving up.
		if resp, ok := tryMath(r.Text); ok {
			return resp
		}
		return "Sorry, I couldn't figure out that conversion."

	case "calculate":
		if resp, ok := tryMath(r.Text); ok {
			return resp
		}
		if resp, ok := tryUnitConversion(r.Text); ok {
			return resp
		}
		return "Sorry, I couldn't figure out that calculation."
	}

	return "Sorry, I didn't understand that."
}
