package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/width"

	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/hostops"
)

// maxLabelWidth bounds how much of a disc label the startup table shows;
// labels wider than this are truncated with an ellipsis.
const maxLabelWidth = 24

// renderDriveTable lists every drive the Registry currently tracks, used at
// startup and by `ripperd drives` to help an operator confirm the daemon
// sees the hardware it expects.
func renderDriveTable(registry *driveregistry.Registry) string {
	drives := registry.All()
	if len(drives) == 0 {
		return "no optical drives detected"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Drive", "Device", "Model", "Capability", "Label", "Job"})

	for _, d := range drives {
		tw.AppendRow(table.Row{
			string(d.ID),
			d.DevicePath,
			d.Model,
			capabilityLabel(d.Capability),
			truncateLabel(d.Label, maxLabelWidth),
			jobColumn(d),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignCenter},
	})
	return tw.Render()
}

func jobColumn(d driveregistry.Drive) string {
	switch {
	case d.Blacklisted:
		return "blacklisted"
	case d.JobID != "":
		return d.JobID
	default:
		return "-"
	}
}

func capabilityLabel(capability hostops.Capability) string {
	var parts []string
	if capability.Has(hostops.CapBluray) {
		parts = append(parts, "BD")
	}
	if capability.Has(hostops.CapDVD) {
		parts = append(parts, "DVD")
	}
	if capability.Has(hostops.CapCD) {
		parts = append(parts, "CD")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "/")
}

// truncateLabel shortens a disc label to at most maxWidth display columns,
// trailing ellipsis included, counting wide (e.g. CJK) runes as two columns
// via golang.org/x/text/width so the rendered table stays aligned
// regardless of label script.
func truncateLabel(label string, maxWidth int) string {
	if displayWidth(label) <= maxWidth {
		return label
	}
	var b strings.Builder
	used := 0
	for _, r := range label {
		w := runeDisplayWidth(r)
		if used+w > maxWidth-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteRune('…')
	return b.String()
}

// runeDisplayWidth reports a rune's terminal column width: East Asian
// wide/fullwidth runes count as two, everything else as one.
func runeDisplayWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

func displayWidth(s string) int {
	total := 0
	for _, r := range s {
		total += runeDisplayWidth(r)
	}
	return total
}

func listDrivesForStartup(ctx context.Context, registry *driveregistry.Registry, host hostops.HostOps) (string, error) {
	drives, err := host.ListDrives(ctx)
	if err != nil {
		return "", fmt.Errorf("list drives: %w", err)
	}
	for _, d := range drives {
		registry.Register(driveregistry.LogicalID(d.LogicalID), d.DevicePath, d.Model, d.Capability)
	}
	return renderDriveTable(registry), nil
}
