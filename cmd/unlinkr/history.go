// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/unlinkr/internal/database"
	"github.com/autobrr/unlinkr/internal/models"
)

func RunHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage transfer history records",
	}

	cmd.AddCommand(runHistoryAddCommand(), runHistoryImportCommand(), runHistoryListCommand(), runHistoryForgetCommand())
	return cmd
}

func openHistory(configPath string) (*database.DB, *models.TransferHistoryStore, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, models.NewTransferHistoryStore(db), nil
}

func runHistoryAddCommand() *cobra.Command {
	var configPath, src, dest, mode string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transfer from a download path to a library path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			record, err := store.Create(cmd.Context(), models.TransferHistoryCreate{Src: src, Dest: dest, Mode: mode})
			if err != nil {
				return err
			}
			cmd.Printf("Recorded transfer %d: %s -> %s (%s)\n", record.ID, record.Src, record.Dest, record.Mode)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&src, "src", "", "Source (download) path")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination (library) path")
	cmd.Flags().StringVar(&mode, "mode", models.TransferModeLink, "Transfer mode: link, copy, move or strm")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dest")
	return cmd
}

func runHistoryImportCommand() *cobra.Command {
	var configPath, file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transfer records from a JSON or YAML list of {src, dest, mode}",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			var creates []models.TransferHistoryCreate
			switch strings.ToLower(filepath.Ext(file)) {
			case ".json":
				err = json.Unmarshal(data, &creates)
			case ".yaml", ".yml":
				err = yaml.Unmarshal(data, &creates)
			default:
				return fmt.Errorf("unsupported file type %q: use .json, .yaml or .yml", filepath.Ext(file))
			}
			if err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}

			db, store, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := store.CreateBatch(cmd.Context(), creates)
			if err != nil {
				return err
			}
			cmd.Printf("Imported %d transfer records from %s\n", n, file)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&file, "file", "", "Records file (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runHistoryListCommand() *cobra.Command {
	var (
		configPath string
		format     string
		src        string
		dest       string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transfer history records, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			var records []*models.TransferHistory
			switch {
			case src != "":
				records, err = store.GetBySource(cmd.Context(), src)
			case dest != "":
				records, err = store.GetByDestination(cmd.Context(), dest)
			default:
				records, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case "yaml":
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(records)
			case "text":
			default:
				return fmt.Errorf("unknown format %q: use text, json or yaml", format)
			}

			if len(records) == 0 {
				cmd.Println("No transfer history records")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODE\tCREATED\tSOURCE\tDESTINATION")
			for _, r := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Mode, r.CreatedAt.Local().Format(time.DateTime), r.Src, r.Dest)
			}
			return tw.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&src, "src", "", "Only records with this source path")
	cmd.Flags().StringVar(&dest, "dest", "", "Only records with this destination path")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records")
	return cmd
}

func runHistoryForgetCommand() *cobra.Command {
	var (
		configPath string
		src        string
		dest       string
		ids        []int64
	)

	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete transfer history records by source, destination or id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := 0
			for _, ok := range []bool{src != "", dest != "", len(ids) > 0} {
				if ok {
					set++
				}
			}
			if set != 1 {
				return errors.New("set exactly one of --src, --dest or --id")
			}

			db, store, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			var removed int64
			switch {
			case src != "":
				var ok bool
				ok, err = store.DeleteBySource(cmd.Context(), src)
				if ok {
					removed = 1
				}
			case dest != "":
				var ok bool
				ok, err = store.DeleteByDestination(cmd.Context(), dest)
				if ok {
					removed = 1
				}
			default:
				removed, err = store.DeleteByIDs(cmd.Context(), ids)
			}
			if err != nil {
				return err
			}

			if removed == 0 {
				cmd.Println("No matching transfer history records")
				return nil
			}
			cmd.Println("Transfer history records removed")
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&src, "src", "", "Source path")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination path")
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "Record id (repeatable)")
	return cmd
}
