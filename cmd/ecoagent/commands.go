package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/andresuchdata/ecoagent/backend-go/internal/supplier"
	"github.com/andresuchdata/ecoagent/backend-go/internal/wasterisk"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "waste-risk",
			Usage: "Evaluate waste risk for one product or the whole inventory",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "product", Usage: "Product id (all products when omitted)"},
			},
			Action: runWasteRisk,
		},
		{
			Name:  "suppliers",
			Usage: "Supplier sustainability scoring",
			Subcommands: []*cli.Command{
				{
					Name:  "score",
					Usage: "Score a single supplier",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "supplier", Required: true},
					},
					Action: runSupplierScore,
				},
				{
					Name:  "rank",
					Usage: "Rank the suppliers of a product",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "product", Usage: "Product id (all suppliers when omitted)"},
						&cli.StringFlag{Name: "location", Usage: "Only suppliers in this location"},
					},
					Action: runSupplierRank,
				},
				{
					Name:  "purchases",
					Usage: "Show the purchase history of a supplier",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "supplier", Required: true},
						&cli.StringFlag{Name: "product"},
					},
					Action: runSupplierPurchases,
				},
			},
		},
		{
			Name:  "dataset",
			Usage: "Manage the CSV datasets",
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List datasets and whether they are present",
					Action: runDatasetList,
				},
				{
					Name:      "fetch",
					Usage:     "Print the rows of a dataset",
					ArgsUsage: "DATASET",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "key", Usage: "Only rows whose key field matches"},
					},
					Action: runDatasetFetch,
				},
				{
					Name:      "upload",
					Usage:     "Replace a dataset with a local CSV or XLSX file",
					ArgsUsage: "DATASET FILE",
					Action:    runDatasetUpload,
				},
				{
					Name:      "import",
					Usage:     "Copy a stored dataset into its database table",
					ArgsUsage: "DATASET",
					Action:    runDatasetImport,
				},
				{
					Name:  "sync",
					Usage: "Pull dataset files from Google Drive",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "folder", Usage: "Drive folder path (configured folder when omitted)"},
					},
					Action: runDatasetSync,
				},
				{
					Name:  "seed",
					Usage: "Upload every dataset file found in a local directory",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:    "data-dir",
							Usage:   "Directory containing the dataset CSV files",
							Value:   "./data/seeds",
							EnvVars: []string{"SEED_DATA_DIR"},
						},
					},
					Action: runDatasetSeed,
				},
			},
		},
	}
}

func datasetArg(c *cli.Context, i int) (domain.Dataset, error) {
	name := c.Args().Get(i)
	d, ok := domain.ParseDataset(name)
	if !ok {
		return "", fmt.Errorf("unknown dataset %q", name)
	}
	return d, nil
}

func runWasteRisk(c *cli.Context) error {
	res := appFrom(c).WasteRisk.Evaluate(c.Context, c.String("product"))
	if err := printJSON(c.App.Writer, res); err != nil {
		return err
	}
	if res.Status == wasterisk.StatusError {
		return cli.Exit("", 2)
	}
	return nil
}

func runSupplierScore(c *cli.Context) error {
	report, err := appFrom(c).Suppliers.Score(c.Context, c.String("supplier"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, report)
}

func runSupplierRank(c *cli.Context) error {
	ranking := appFrom(c).Suppliers.Rank(c.Context, c.String("product"), c.String("location"))
	if err := printJSON(c.App.Writer, ranking); err != nil {
		return err
	}
	if ranking.Status == supplier.RankError {
		return cli.Exit("", 2)
	}
	return nil
}

func runSupplierPurchases(c *cli.Context) error {
	rows, err := appFrom(c).Suppliers.Purchases(c.Context, c.String("supplier"), c.String("product"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, rows)
}

func runDatasetList(c *cli.Context) error {
	infos, err := appFrom(c).Datasets.List(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, infos)
}

func runDatasetFetch(c *cli.Context) error {
	d, err := datasetArg(c, 0)
	if err != nil {
		return err
	}
	rows, err := appFrom(c).Datasets.Fetch(c.Context, d, c.String("key"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, rows)
}

func runDatasetUpload(c *cli.Context) error {
	d, err := datasetArg(c, 0)
	if err != nil {
		return err
	}
	path := c.Args().Get(1)
	if path == "" {
		return fmt.Errorf("file argument is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	result, err := appFrom(c).Datasets.Upload(c.Context, d, filepath.Base(path), data)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, result)
}

func runDatasetImport(c *cli.Context) error {
	d, err := datasetArg(c, 0)
	if err != nil {
		return err
	}
	n, err := appFrom(c).Datasets.Import(c.Context, d)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]interface{}{"dataset": d, "rows": n})
}

func runDatasetSync(c *cli.Context) error {
	report, err := appFrom(c).Datasets.SyncFromDrive(c.Context, c.String("folder"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, report)
}

// runDatasetSeed uploads each dataset whose default file exists in data-dir.
func runDatasetSeed(c *cli.Context) error {
	dir := c.String("data-dir")
	results := make([]*service.UploadResult, 0)
	for _, d := range domain.Datasets() {
		path := filepath.Join(dir, d.DefaultFile())
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			log.Debug().Str("file", path).Msg("seed file not found, skipping")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		result, err := appFrom(c).Datasets.Upload(c.Context, d, d.DefaultFile(), data)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", d, err)
		}
		results = append(results, result)
	}
	return printJSON(c.App.Writer, results)
}
