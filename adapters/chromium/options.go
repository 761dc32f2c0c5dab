package chromium

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-pagecache/pagecache"
)

const (
	defaultPDFScale    = 1.0
	defaultPDFPageSize = "A4"
)

var pdfLengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

var pdfPageSizesInches = map[string]struct {
	width  float64
	height float64
}{
	"A3":     {width: 11.69, height: 16.54},
	"A4":     {width: 8.27, height: 11.69},
	"A5":     {width: 5.83, height: 8.27},
	"LETTER": {width: 8.5, height: 11},
	"LEGAL":  {width: 8.5, height: 14},
}

// DefaultPDFOptions is A4 with background graphics.
func DefaultPDFOptions() pagecache.PDFOptions {
	return pagecache.PDFOptions{
		PageSize:        defaultPDFPageSize,
		PrintBackground: boolPtr(true),
		Scale:           defaultPDFScale,
	}
}

// MergePDFOptions overlays the set fields of override on base.
func MergePDFOptions(base, override pagecache.PDFOptions) pagecache.PDFOptions {
	merged := base
	if override.PageSize != "" {
		merged.PageSize = override.PageSize
	}
	if override.Landscape != nil {
		merged.Landscape = override.Landscape
	}
	if override.PrintBackground != nil {
		merged.PrintBackground = override.PrintBackground
	}
	if override.Scale != 0 {
		merged.Scale = override.Scale
	}
	if override.MarginTop != "" {
		merged.MarginTop = override.MarginTop
	}
	if override.MarginBottom != "" {
		merged.MarginBottom = override.MarginBottom
	}
	if override.MarginLeft != "" {
		merged.MarginLeft = override.MarginLeft
	}
	if override.MarginRight != "" {
		merged.MarginRight = override.MarginRight
	}
	if override.PreferCSSPageSize != nil {
		merged.PreferCSSPageSize = override.PreferCSSPageSize
	}
	return merged
}

func buildPrintToPDFParams(opts pagecache.PDFOptions) (*page.PrintToPDFParams, error) {
	params := page.PrintToPDF()

	scale := opts.Scale
	if scale == 0 {
		scale = defaultPDFScale
	}
	if scale < 0.1 || scale > 2.0 {
		return nil, pagecache.NewError(pagecache.KindValidation, "pdf scale must be between 0.1 and 2.0", nil)
	}
	params = params.WithScale(scale)

	if opts.Landscape != nil {
		params = params.WithLandscape(*opts.Landscape)
	}
	if opts.PrintBackground != nil {
		params = params.WithPrintBackground(*opts.PrintBackground)
	}
	if opts.PreferCSSPageSize != nil && *opts.PreferCSSPageSize {
		params = params.WithPreferCSSPageSize(true)
	}

	pageSize := opts.PageSize
	if pageSize == "" {
		pageSize = defaultPDFPageSize
	}
	size, ok := pdfPageSizesInches[strings.ToUpper(pageSize)]
	if !ok {
		return nil, pagecache.NewError(pagecache.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", pageSize), nil)
	}
	params = params.WithPaperWidth(size.width).WithPaperHeight(size.height)

	margins := []struct {
		value string
		apply func(float64) *page.PrintToPDFParams
	}{
		{opts.MarginTop, func(v float64) *page.PrintToPDFParams { return params.WithMarginTop(v) }},
		{opts.MarginBottom, func(v float64) *page.PrintToPDFParams { return params.WithMarginBottom(v) }},
		{opts.MarginLeft, func(v float64) *page.PrintToPDFParams { return params.WithMarginLeft(v) }},
		{opts.MarginRight, func(v float64) *page.PrintToPDFParams { return params.WithMarginRight(v) }},
	}
	for _, margin := range margins {
		if margin.value == "" {
			continue
		}
		inches, err := parseLengthInches(margin.value)
		if err != nil {
			return nil, err
		}
		params = margin.apply(inches)
	}

	return params, nil
}

func parseLengthInches(value string) (float64, error) {
	matches := pdfLengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, pagecache.NewError(pagecache.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), nil)
	}

	unit := strings.ToLower(matches[2])
	if unit == "" {
		unit = "in"
	}
	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, pagecache.NewError(pagecache.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), err)
	}

	switch unit {
	case "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / 96.0, nil
	default:
		return 0, pagecache.NewError(pagecache.KindValidation, fmt.Sprintf("unsupported pdf length unit: %s", unit), nil)
	}
}

type launchFlag struct {
	Name  string
	Value any
}

// launchFlags lists the flags applied on top of the chromedp defaults.
func launchFlags(headless bool, args []string) []launchFlag {
	flags := []launchFlag{
		{Name: "headless", Value: headless},
		{Name: "no-sandbox", Value: true},
		{Name: "disable-setuid-sandbox", Value: true},
	}
	return append(flags, flagsFromArgs(args)...)
}

// flagsFromArgs turns "--name" and "--name=value" strings into flags.
func flagsFromArgs(args []string) []launchFlag {
	flags := make([]launchFlag, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimSpace(arg), "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			flags = append(flags, launchFlag{Name: name, Value: value})
			continue
		}
		flags = append(flags, launchFlag{Name: arg, Value: true})
	}
	return flags
}

func allocatorOptions(flags []launchFlag) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(flags))
	for _, flag := range flags {
		options = append(options, chromedp.Flag(flag.Name, flag.Value))
	}
	return options
}

func boolPtr(value bool) *bool {
	return &value
}
