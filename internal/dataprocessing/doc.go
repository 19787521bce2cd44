// Package dataprocessing implements the transforms of the family heights
// pipeline. Every stage is a pure function from family tables to tables;
// reading and writing files is left to the caller.
//
// # Stages
//
//	1. Impute: replace categorical son and daughter heights with numbers
//	2. Reindex: move the anomalous family to its place in father-height order
//	3. Reshape: turn child slots into one row per child with both parents
//	4. Describe: mean, standard deviation and histograms per group
//
// # Usage
//
//	table, err := dataprocessing.ReadFamilyTable(path, domain.MasterSchema, dataprocessing.ParseOptions{
//	    Aliases: map[string]int{"136A": 205},
//	})
//	if err != nil {
//	    return err
//	}
//	imputed, err := dataprocessing.Impute(table, sons, daughters)
//	if err != nil {
//	    return err
//	}
//	reindexed, err := dataprocessing.Reindex(imputed.Final, dataprocessing.ReindexOptions{Anomalous: 205})
//	if err != nil {
//	    return err
//	}
//	children, err := dataprocessing.Reshape(reindexed.Table)
package dataprocessing
