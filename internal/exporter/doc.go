// Package exporter writes pipeline tables and reports.
//
// Every output of a pipeline step is added to a Batch and published together:
// files are rendered to temporary siblings first and only renamed into place
// once all of them were written, so a failing step never leaves a partial set
// of outputs behind.
//
//	batch := exporter.NewBatch(logger)
//	batch.AddCSV(paths.ParentsCSV, exporter.WriteOptions{Records: result.Parents.Rows()})
//	batch.Add(paths.ChartsXLSX, exporter.ChartWorkbookWriter(table, desc))
//	err := batch.Commit(ctx)
package exporter
