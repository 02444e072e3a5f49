package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type datasetView struct {
	ID          uint     `json:"id"`
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        string   `json:"tags"`
	DOI         string   `json:"doi"`
	Authors     []string `json:"authors"`
	Files       []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"files"`
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all datasets",
	RunE:  runDatasetsList,
}

var datasetsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetsGet,
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a dataset and its version history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetsDelete,
}

var datasetsPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a dataset to the archive and mint its DOI",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetsPublish,
}

var datasetsRelatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Show datasets related to the given one",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetsRelated,
}

func init() {
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsGetCmd)
	datasetsCmd.AddCommand(datasetsDeleteCmd)
	datasetsCmd.AddCommand(datasetsPublishCmd)
	datasetsCmd.AddCommand(datasetsRelatedCmd)
}

func runDatasetsList(cmd *cobra.Command, args []string) error {
	client := newClient()
	var datasets []datasetView
	if err := client.getJSON("/datasets", &datasets); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(datasets)
	}

	headers := []string{"ID", "Kind", "Title", "DOI", "Files"}
	rows := make([][]string, 0, len(datasets))
	for _, ds := range datasets {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(ds.ID), 10),
			ds.Kind,
			truncate(ds.Title, 40),
			ds.DOI,
			strconv.Itoa(len(ds.Files)),
		})
	}
	printTable(headers, rows)
	return nil
}

func runDatasetsGet(cmd *cobra.Command, args []string) error {
	client := newClient()
	var ds datasetView
	if err := client.getJSON("/datasets/"+args[0], &ds); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(ds)
	}

	rows := [][]string{
		{"ID", strconv.FormatUint(uint64(ds.ID), 10)},
		{"Kind", ds.Kind},
		{"Title", ds.Title},
		{"Description", truncate(ds.Description, 60)},
		{"Tags", ds.Tags},
		{"DOI", ds.DOI},
	}
	for _, f := range ds.Files {
		rows = append(rows, []string{"File", fmt.Sprintf("%s (%d bytes)", f.Name, f.Size)})
	}
	printTable([]string{"Field", "Value"}, rows)
	return nil
}

func runDatasetsDelete(cmd *cobra.Command, args []string) error {
	client := newClient()
	if err := client.delete("/datasets/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("dataset %s deleted\n", args[0])
	return nil
}

func runDatasetsPublish(cmd *cobra.Command, args []string) error {
	client := newClient()
	var result struct {
		DepositionID int    `json:"deposition_id"`
		DOI          string `json:"doi"`
		Version      int    `json:"version"`
	}
	if err := client.postJSON("/datasets/"+args[0]+"/publish", nil, &result); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(result)
	}
	fmt.Printf("published: doi=%s deposition=%d version=%d\n", result.DOI, result.DepositionID, result.Version)
	return nil
}

func runDatasetsRelated(cmd *cobra.Command, args []string) error {
	client := newClient()
	var result struct {
		Related []struct {
			DatasetID uint    `json:"dataset_id"`
			Title     string  `json:"title"`
			DOI       string  `json:"doi"`
			Score     float64 `json:"score"`
		} `json:"related"`
	}
	if err := client.getJSON("/datasets/"+args[0]+"/related", &result); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(result)
	}

	headers := []string{"ID", "Title", "DOI", "Score"}
	rows := make([][]string, 0, len(result.Related))
	for _, rel := range result.Related {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(rel.DatasetID), 10),
			truncate(rel.Title, 40),
			rel.DOI,
			strconv.FormatFloat(rel.Score, 'f', 2, 64),
		})
	}
	printTable(headers, rows)
	return nil
}
