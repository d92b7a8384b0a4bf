package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

type handoffChoice string

const (
	choiceApprove handoffChoice = "approve"
	choiceReject  handoffChoice = "reject"
	choiceCancel  handoffChoice = "cancel"
)

// parseHandoffChoice maps typed input onto a choice. Empty input is not
// accepted: the human must pick explicitly.
func parseHandoffChoice(input string) (handoffChoice, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "a", "approve":
		return choiceApprove, true
	case "n", "no", "r", "reject":
		return choiceReject, true
	case "c", "cancel", "q", "quit", "exit":
		return choiceCancel, true
	default:
		return "", false
	}
}

// handoffChooser asks the human what to do with a pending handoff.
type handoffChooser interface {
	Choose(prompt string) (handoffChoice, error)
}

// selectChooser presents an arrow-key menu on a terminal.
type selectChooser struct{}

var selectItems = []struct {
	label  string
	choice handoffChoice
}{
	{label: "Approve the remediation plan", choice: choiceApprove},
	{label: "Reject the remediation plan", choice: choiceReject},
	{label: "Cancel", choice: choiceCancel},
}

func (selectChooser) Choose(prompt string) (handoffChoice, error) {
	labels := make([]string, len(selectItems))
	for i, item := range selectItems {
		labels[i] = item.label
	}
	sel := promptui.Select{
		Label: prompt,
		Items: labels,
		Size:  len(labels),
	}
	idx, _, err := sel.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return choiceCancel, nil
		}
		return "", err
	}
	return selectItems[idx].choice, nil
}

// lineChooser reads typed answers, re-asking until one parses. End of input
// cancels the handoff.
type lineChooser struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineChooser(in io.Reader, out io.Writer) *lineChooser {
	return &lineChooser{in: bufio.NewReader(in), out: out}
}

func (c *lineChooser) Choose(prompt string) (handoffChoice, error) {
	for {
		if _, err := fmt.Fprintf(c.out, "%s [approve/reject/cancel]: ", prompt); err != nil {
			return "", err
		}
		line, err := c.in.ReadString('\n')
		if choice, ok := parseHandoffChoice(line); ok {
			return choice, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out)
				return choiceCancel, nil
			}
			return "", err
		}
		fmt.Fprintln(c.out, yellow("Please select approve or reject before submitting"))
	}
}
