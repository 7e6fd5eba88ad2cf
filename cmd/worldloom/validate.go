package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"worldloom/internal/domain"
	"worldloom/internal/validate"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the domain content and config for drift",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := domain.Load(cfg)
	if err != nil {
		return err
	}

	report, err := validate.Run(d, cfg)
	if err != nil {
		return err
	}

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	out := cmd.OutOrStdout()
	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out, "")
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Subject
		if location == "" {
			location = "(config)"
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
