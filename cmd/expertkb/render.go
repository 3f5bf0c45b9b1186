package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/kb"
	"github.com/pbaille/expertkb/internal/questionnaire"
	"github.com/pbaille/expertkb/internal/source"
	"github.com/pterm/pterm"
)

const (
	noTargetOption = "(no target)"
	skipOption     = "(skip)"
)

// syntaxReport formats a syntax error as "location:line:column" followed by
// the offending line and a caret under the column
func syntaxReport(location, text string, serr *kb.SyntaxError) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d:%d: %s\n",
		source.Describe(location), serr.Line, serr.Column, pterm.FgRed.Sprint(serr.Message))
	if excerpt := serr.Excerpt(text); excerpt != "" {
		for _, line := range strings.Split(excerpt, "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderParseError(location, text string, err error) {
	var serr *kb.SyntaxError
	if errors.As(err, &serr) {
		fmt.Print(syntaxReport(location, text, serr))
	}
}

func renderDB(db *domain.DB) error {
	if db.Len() == 0 {
		pterm.Info.Println("Knowledge base has no entries.")
	} else {
		pterm.DefaultSection.Println("Entries")
		rows := pterm.TableData{{"#", "Conclusion", "Conditions"}}
		for i, e := range db.All() {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				domain.Pair{Category: e.Category, Value: e.Value}.String(),
				formatConditions(e.Attributes),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
	}

	if names := db.CategoryNames(); len(names) > 0 {
		pterm.DefaultSection.Println("Categories")
		items := make([]pterm.BulletListItem, 0, len(names))
		for _, name := range names {
			items = append(items, pterm.BulletListItem{
				Level: 0,
				Text:  fmt.Sprintf("%s: %s", pterm.Bold.Sprint(name), strings.Join(db.Values(name), ", ")),
			})
		}
		if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
			return err
		}
	}

	if categories := db.QuestionCategories(); len(categories) > 0 {
		pterm.DefaultSection.Println("Questions")
		rows := pterm.TableData{{"Category", "Prompt", "Tip", "Change"}}
		for _, c := range categories {
			prompt, _ := db.Question(c)
			tip, _ := db.Tip(c)
			change, _ := db.Change(c)
			rows = append(rows, []string{c, prompt, tip, change})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
	}

	return nil
}

func formatConditions(attrs []domain.Pair) string {
	if len(attrs) == 0 {
		return pterm.FgGray.Sprint("always")
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, " and ")
}

func renderConclusion(target, conclusion string) {
	if target == kb.NoTarget {
		pterm.Success.Println(conclusion)
		return
	}
	pterm.Success.Printfln("%s: %s", target, conclusion)
}

// renderNotFound explains a failed resolution, with the target's change
// text when the knowledge base has one
func renderNotFound(db *domain.DB, target string, err error) {
	if !errors.IsNotFound(err) {
		return
	}
	pterm.Warning.Println("No conclusion matches these answers.")
	if change, ok := db.Change(target); ok && change != "" {
		pterm.Info.Println(change)
	}
}

func renderHistory(records []domain.QueryRecord) error {
	rows := pterm.TableData{{"Time", "Target", "Answers", "Result"}}
	for _, r := range records {
		result := r.Conclusion
		if !r.Found {
			result = pterm.FgYellow.Sprint("not found")
		}
		target := r.Target
		if target == kb.NoTarget {
			target = "-"
		}
		rows = append(rows, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			target,
			kb.FormatAnswers(r.Answers),
			result,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func renderSources(sources []domain.Source) error {
	rows := pterm.TableData{{"ID", "Location", "Loaded"}}
	for _, s := range sources {
		rows = append(rows, []string{
			s.ID[:8],
			s.Location,
			s.LoadedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func renderSource(src *domain.Source) {
	pterm.DefaultSection.Println(src.Location)
	pterm.Info.Printfln("%s, loaded %s", src.ID, src.LoadedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Print(src.Content)
	if !strings.HasSuffix(src.Content, "\n") {
		fmt.Println()
	}
}

func promptTarget(form *questionnaire.Form) (string, error) {
	options := append([]string{noTargetOption}, form.Targets()...)
	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultText("What are you trying to find out?").
		Show()
	if err != nil {
		return "", errors.Wrap(err, "select target")
	}
	if choice == noTargetOption {
		return kb.NoTarget, nil
	}
	return choice, nil
}

func promptAnswers(form *questionnaire.Form) error {
	for _, q := range form.Questions() {
		if q.Tip != "" {
			pterm.Info.Println(q.Tip)
		}
		if len(q.Choices) == 0 {
			pterm.Warning.Printfln("%s: no known values, skipping", q.Category)
			continue
		}

		options := append(append([]string{}, q.Choices...), skipOption)
		choice, err := pterm.DefaultInteractiveSelect.
			WithOptions(options).
			WithDefaultText(q.Prompt).
			Show()
		if err != nil {
			return errors.Wrapf(err, "answer %s", q.Category)
		}
		if choice == skipOption {
			continue
		}
		if err := form.Answer(q.Category, choice); err != nil {
			return err
		}
	}
	return nil
}
