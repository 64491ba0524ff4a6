// Package exporter writes a module's matched sessions as CSV.
//
// CSVWriter writes files under the configured exports directory with a
// UTF-8 BOM so spreadsheet programs detect the encoding. WriteSessions
// writes the same layout to any stream, which the HTTP export endpoint
// uses.
//
//	w := exporter.NewCSVWriter(cfg.GetPaths())
//	path, err := w.ExportSessions("DSA", days)
package exporter
