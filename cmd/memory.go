package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/streetlives/util-scripts/internal/cache"
	"github.com/streetlives/util-scripts/internal/match"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect the durable match memory",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every remembered source id and its directory ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		memory, closeStore, err := openMatchMemory(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		entries := memory.All()
		ids := make([]string, 0, len(entries))
		for id := range entries {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			entry := entries[id]
			fmt.Printf("%s\tlocation=%s\tservice=%s\torg=%q\n",
				id, entry.LocationID, entry.ServiceID, entry.OrgName)
		}
		fmt.Printf("%d entries\n", len(ids))
		return nil
	},
}

var memoryShowCmd = &cobra.Command{
	Use:   "show <source-id>",
	Short: "Show one remembered entry in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		memory, closeStore, err := openMatchMemory(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		if !memory.Has(args[0]) {
			return eris.Errorf("no entry for %q", args[0])
		}
		entry := memory.Get(args[0])

		fmt.Printf("location id:  %s\n", entry.LocationID)
		fmt.Printf("service id:   %s\n", entry.ServiceID)
		fmt.Printf("organization: %s\n", entry.OrgName)
		fmt.Printf("service name: %s\n", entry.ServiceName)
		if len(entry.NearbyButDifferentOrgs) > 0 {
			fmt.Printf("confirmed distinct from: %s\n",
				strings.Join(entry.NearbyButDifferentOrgs, ", "))
		}
		return nil
	},
}

func openMatchMemory(cmd *cobra.Command) (*match.Memory, func(), error) {
	ctx := cmd.Context()
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open cache")
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, eris.Wrap(err, "migrate cache")
	}
	memory, err := match.LoadMemory(ctx, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return memory, func() { store.Close() }, nil
}

func init() {
	memoryCmd.AddCommand(memoryListCmd, memoryShowCmd)
	rootCmd.AddCommand(memoryCmd)
}
