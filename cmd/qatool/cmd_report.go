package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
)

// answersFile is the scripted form of a checklist run:
//
//	evaluator_name: Ana
//	contact_id: C-1042
//	answers:
//	  - topic: greeting
//	    marking: error
//	    note: skipped the name check
//	  - topic: Tone
//	    marking: n/a
type answersFile struct {
	report.Metadata `yaml:",inline"`
	Answers         []answerEntry `yaml:"answers"`
}

// answerEntry names its topic by id or by label.
type answerEntry struct {
	Topic   string `yaml:"topic"`
	Marking string `yaml:"marking"`
	Note    string `yaml:"note,omitempty"`
}

func parseAnswersFile(data []byte) (answersFile, error) {
	var af answersFile
	if len(bytes.TrimSpace(data)) == 0 {
		return af, fmt.Errorf("answers file is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&af); err != nil {
		return af, fmt.Errorf("decode answers: %w", err)
	}
	return af, nil
}

func resolveTopic(cat *catalog.Catalog, ref string) (catalog.TopicID, bool) {
	ref = strings.TrimSpace(ref)
	if _, ok := cat.Lookup(catalog.TopicID(ref)); ok {
		return catalog.TopicID(ref), true
	}
	return cat.IDForLabel(ref)
}

// applyAnswers replays the file into the session and reports every bad
// entry at once.
func applyAnswers(sess *session.Session, af answersFile) error {
	var problems []string
	for i, entry := range af.Answers {
		id, ok := resolveTopic(sess.Catalog(), entry.Topic)
		if !ok {
			problems = append(problems, fmt.Sprintf("answers[%d]: unknown topic %q", i, entry.Topic))
			continue
		}
		m, err := checklist.ParseMarking(entry.Marking)
		if err != nil {
			problems = append(problems, fmt.Sprintf("answers[%d]: %v", i, err))
			continue
		}
		if err := sess.Mark(id, m); err != nil {
			problems = append(problems, fmt.Sprintf("answers[%d]: %v", i, err))
			continue
		}
		if entry.Note != "" {
			if err := sess.Note(id, entry.Note); err != nil {
				problems = append(problems, fmt.Sprintf("answers[%d]: %v", i, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid answers:\n  %s", strings.Join(problems, "\n  "))
	}
	sess.SetMetadata(af.Metadata)
	return nil
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var (
		answersPath string
		evaluator   string
		contact     string
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a report from an answers file",
		Long: `Reads a YAML answers file, prints the synthesized report and, with
--save, stores it in the history of the current user.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(answersPath)
			if err != nil {
				return fmt.Errorf("read answers: %w", err)
			}
			af, err := parseAnswersFile(data)
			if err != nil {
				return err
			}
			if evaluator != "" {
				af.EvaluatorName = evaluator
			}
			if contact != "" {
				af.ContactID = contact
			}

			env, err := openEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.Close()

			sess := env.newSession()
			if err := applyAnswers(sess, af); err != nil {
				return err
			}
			r := sess.Generate(cmd.Context())
			out := cmd.OutOrStdout()
			if r.Empty() {
				warn(cmd.ErrOrStderr(), "No topic is marked; the report is empty.")
			} else {
				fmt.Fprintln(out, r.Text)
			}
			if !save {
				return nil
			}
			rec, err := sess.Save(cmd.Context())
			if err != nil {
				failure(cmd.ErrOrStderr(), session.Notice(err))
				return err
			}
			success(cmd.ErrOrStderr(), "%s (%s)", session.NoticeSaved, rec.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&answersPath, "answers", "a", "", "YAML answers file (required)")
	f.StringVar(&evaluator, "evaluator", "", "evaluator name saved with the report")
	f.StringVar(&contact, "contact", "", "contact id saved with the report")
	f.BoolVar(&save, "save", false, "save the report to history")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}
