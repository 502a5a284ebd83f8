package annotate

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// digester renders artifact HTML to markdown for CLI and log
// consumers. Conversion failures degrade to an empty digest, the HTML
// is always present on the artifact anyway.
type digester struct {
	conv *converter.Converter
}

func newDigester() *digester {
	return &digester{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

func (d *digester) render(src string) string {
	out, err := d.conv.ConvertString(src)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
