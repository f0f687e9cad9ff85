package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/next-exp/oaevent_go/pkg/channelid"
	"github.com/next-exp/oaevent_go/pkg/geofile"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/geotree"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"github.com/next-exp/oaevent_go/pkg/oadb"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var hashCmd = &cobra.Command{
	Use:   "hash <geometry-file>",
	Short: "Print the geometry name and its canonical file name",
	Args:  cobra.ExactArgs(1),
	RunE:  runHash,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <geometry-file>",
	Short: "Print the id, path and position of every mapped volume",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var channelCmd = &cobra.Command{
	Use:   "channel <hex-id>...",
	Short: "Decode channel ids",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChannel,
}

var (
	listFile   string
	lookupTime string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Print the geometry chosen by a geometry list at a time",
	Args:  cobra.NoArgs,
	RunE:  runLookup,
}

var importCmd = &cobra.Command{
	Use:   "import <description.yaml> <output-dir>",
	Short: "Build a geometry from a volume description and write it",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

func init() {
	lookupCmd.Flags().StringVar(&listFile, "list", "", "Geometry list (default from configuration)")
	lookupCmd.Flags().StringVar(&lookupTime, "time", "", "Time in RFC3339 format (default now)")
}

// loadFile reads the geometry of a file into a new manager.
func loadFile(path string) (*geommanager.Manager, error) {
	c, err := openGeometryFile(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	m := geommanager.New(geommanager.WithOpener(openGeometryFile))
	if err := m.LoadGeometry(c, geomid.HashValue{}, geomid.AlignmentId{}); err != nil {
		return nil, err
	}
	return m, nil
}

func runHash(cmd *cobra.Command, args []string) error {
	m, err := loadFile(args[0])
	if err != nil {
		return err
	}
	defer geomid.ClearResolver(m)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name: %s\n", m.Tree().Name())
	fmt.Fprintf(out, "File: %s\n", geofile.FileName(m.GetHash()))
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	m, err := loadFile(args[0])
	if err != nil {
		return err
	}
	defer geomid.ClearResolver(m)
	return dumpGeometry(cmd, m)
}

func dumpGeometry(cmd *cobra.Command, m *geommanager.Manager) error {
	idMap := m.GeomIdMap()
	ids := make([]geomid.GeometryId, 0, len(idMap))
	for id := range idMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := cmd.OutOrStdout()
	for _, id := range ids {
		pos, err := m.GetPosition(id)
		if err != nil {
			logger.Error(fmt.Errorf("no position for %d: %w", id.AsInt(), err).Error())
			continue
		}
		fmt.Fprintf(out, "%08x %-6s %s (%.1f, %.1f, %.1f)\n",
			uint32(id), id.SubsystemName(), m.GetPath(id), pos.X, pos.Y, pos.Z)
	}
	return nil
}

func runChannel(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid channel id %q: %w", arg, err)
		}
		id := channelid.ChannelId(v)
		fmt.Fprintf(cmd.OutOrStdout(), "%08x %s\n", uint32(id), id.AsString())
	}
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	path := listFile
	if path == "" {
		path = configuration.GeometryList
		if !filepath.IsAbs(path) {
			path = filepath.Join(configuration.GeometryDir, path)
		}
	}
	l, err := oadb.LoadGeometryList(path)
	if err != nil {
		return err
	}

	at := time.Now()
	if lookupTime != "" {
		at, err = time.Parse(time.RFC3339, lookupTime)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", lookupTime, err)
		}
	}
	h := l.HashAt(at)
	if !h.Valid() {
		return fmt.Errorf("no geometry in %s", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", h.Hex(), geofile.FileName(h))
	return nil
}

// buildDescription turns a YAML volume description into a hashed tree.
func buildDescription(data []byte) (*geotree.Tree, geomid.HashValue, error) {
	d, err := geotree.ParseDescription(data)
	if err != nil {
		return nil, geomid.HashValue{}, err
	}
	if d.Name == "" {
		d.Name = geommanager.DefaultGeometryKey
	}
	tree, err := d.Build()
	if err != nil {
		return nil, geomid.HashValue{}, err
	}
	h := geommanager.ComputeHash(tree)
	if err := geommanager.SaveHashCode(tree, h); err != nil {
		return nil, geomid.HashValue{}, err
	}
	return tree, h, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading description: %w", err)
	}
	tree, h, err := buildDescription(data)
	if err != nil {
		return err
	}

	path := filepath.Join(args[1], geofile.FileName(h))
	f, err := geofile.Create(path)
	if err != nil {
		return err
	}
	if err := f.WriteTree(tree.Name(), tree); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
