package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"mldesk/pkg/types"
)

// View renders outcomes and status lines to the terminal. All methods must
// be called from the UI-owning goroutine only.
type View struct {
	out io.Writer

	okFmt    *color.Color
	errFmt   *color.Color
	faintFmt *color.Color
}

func NewView(out io.Writer) *View {
	return &View{
		out:      out,
		okFmt:    color.New(color.FgGreen),
		errFmt:   color.New(color.FgRed, color.Bold),
		faintFmt: color.New(color.FgHiBlack),
	}
}

// Handle dispatches one outcome by tag. Errors are both appended to the
// running log and shown as a banner, the console stand-in for the original
// modal dialog.
func (v *View) Handle(o types.Outcome) {
	switch out := o.(type) {
	case types.LoadOK:
		v.okFmt.Fprintf(v.out, "✔ %s\n", out.Message)
	case types.RunResult:
		fmt.Fprintf(v.out, "— %s —\n", out.Model)
		v.renderPayload(out.Payload)
	case types.ChainResult:
		fmt.Fprintf(v.out, "— chained run —\n")
		fmt.Fprintf(v.out, "image: %s\n", out.ImagePath)
		v.renderClassifications(out.Classifications)
	case types.TaskError:
		v.ShowError(out.Message)
	default:
		v.faintFmt.Fprintf(v.out, "(unhandled outcome %T)\n", o)
	}
}

// ShowError prints the banner used for every failed task.
func (v *View) ShowError(msg string) {
	line := strings.Repeat("=", 8)
	v.errFmt.Fprintf(v.out, "%s ERROR %s\n%s\n", line, line, msg)
}

func (v *View) renderPayload(p types.RunPayload) {
	switch p.Kind {
	case types.PayloadImage:
		fmt.Fprintf(v.out, "image written to %s\n", p.ImagePath)
	case types.PayloadClassifications:
		v.renderClassifications(p.Classifications)
	default:
		v.faintFmt.Fprintf(v.out, "(empty payload)\n")
	}
}

func (v *View) renderClassifications(results []types.Classification) {
	if len(results) == 0 {
		v.faintFmt.Fprintf(v.out, "(no classifications)\n")
		return
	}
	table := tablewriter.NewWriter(v.out)
	table.Header("Label", "Score")
	for _, c := range results {
		table.Append([]string{c.Label, fmt.Sprintf("%.4f", c.Score)})
	}
	table.Render()
}

// ShowModels prints the registry contents with loaded flags.
func (v *View) ShowModels(infos []types.ModelInfo) {
	table := tablewriter.NewWriter(v.out)
	table.Header("#", "Name", "Category", "Loaded")
	for i, info := range infos {
		table.Append([]string{
			fmt.Sprintf("%d", i+1), info.Name, info.Category, fmt.Sprintf("%v", info.Loaded),
		})
	}
	table.Render()
}

// ShowInfo prints one model's descriptor and loaded state.
func (v *View) ShowInfo(info types.ModelInfo) {
	fmt.Fprintf(v.out, "name:        %s\n", info.Name)
	fmt.Fprintf(v.out, "category:    %s\n", info.Category)
	fmt.Fprintf(v.out, "description: %s\n", info.Description)
	fmt.Fprintf(v.out, "loaded:      %v\n", info.Loaded)
}

// Notice prints a low-key status line.
func (v *View) Notice(format string, args ...any) {
	v.faintFmt.Fprintf(v.out, format+"\n", args...)
}

// Say prints a plain line.
func (v *View) Say(format string, args ...any) {
	fmt.Fprintf(v.out, format+"\n", args...)
}
