package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// usageError 表示参数或配置错误，退出码为 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func createCommands() []*cli.Command {
	return []*cli.Command{
		createServeCommand(),
		createObjectivesCommand(),
		createBucketsCommand(),
	}
}

func createObjectivesCommand() *cli.Command {
	return &cli.Command{
		Name:    "objectives",
		Aliases: []string{"o"},
		Usage:   "校验并列出配置文件中声明的目标",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, app, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			reg, err := app.registry()
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			return printObjectives(cmd.Root().Writer, reg)
		},
	}
}

func printObjectives(w io.Writer, reg *xslo.Registry) error {
	if reg.Len() == 0 {
		_, err := fmt.Fprintln(w, "no objectives declared")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSUCCESS RATE\tLATENCY")
	for _, name := range reg.Names() {
		o, _ := reg.Lookup(name)
		success, latency := "-", "-"
		if p, ok := o.SuccessRateTarget(); ok {
			success = "p" + p.String()
		}
		if th, p, ok := o.LatencyTarget(); ok {
			latency = fmt.Sprintf("p%s < %s", p, th.Duration())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, success, latency)
	}
	return tw.Flush()
}

func createBucketsCommand() *cli.Command {
	return &cli.Command{
		Name:    "buckets",
		Aliases: []string{"b"},
		Usage:   "列出延迟直方图桶边界和可用的目标取值",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return printBuckets(cmd.Root().Writer)
		},
	}
}

func printBuckets(w io.Writer) error {
	bounds := make([]string, 0, len(xmetrics.HistogramBuckets()))
	for _, b := range xmetrics.HistogramBuckets() {
		bounds = append(bounds, fmt.Sprint(b))
	}
	thresholds := make([]string, 0, len(xslo.Latencies()))
	for _, l := range xslo.Latencies() {
		thresholds = append(thresholds, l.Duration().String())
	}
	percentiles := make([]string, 0, len(xslo.Percentiles()))
	for _, p := range xslo.Percentiles() {
		percentiles = append(percentiles, p.String())
	}
	_, err := fmt.Fprintf(w, "buckets (s):         %s\nlatency thresholds:  %s\npercentiles:         %s\n",
		strings.Join(bounds, " "), strings.Join(thresholds, " "), strings.Join(percentiles, " "))
	return err
}
