package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var ErrValidation = errors.New("geometry validation failed")

var trials int

var validateCmd = &cobra.Command{
	Use:   "validate <geometry-file>",
	Short: "Check that every geometry id of a file can be found again",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().IntVarP(&trials, "trials", "t", 0, "Number of shuffled passes (default from configuration)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	db, err := newDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	db.SetGeometryOverride(args[0])
	if _, err := db.Geometry(nil); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "FAIL")
		return err
	}

	n := trials
	if n <= 0 {
		n = configuration.Trials
	}
	err = validateGeometry(db.GeomId(), n, configuration.NumWorkers, cmd.OutOrStdout())
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "FAIL")
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "SUCCESS")
	return nil
}

// volumeChecks lists every mapped volume with its position, sorted by id.
func volumeChecks(m *geommanager.Manager) ([]volumeCheck, error) {
	idMap := m.GeomIdMap()
	ids := make([]geomid.GeometryId, 0, len(idMap))
	for id := range idMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	tree := m.Tree()
	checks := make([]volumeCheck, 0, len(ids))
	for _, id := range ids {
		switch {
		case !id.IsValid():
			return nil, fmt.Errorf("%w: invalid geometry id %d", ErrValidation, id.AsInt())
		case id.SubsystemName() == "node":
			return nil, fmt.Errorf("%w: node geometry id %d %d", ErrValidation, id.AsInt(), idMap[id])
		case id.SubsystemName() == "unknown":
			return nil, fmt.Errorf("%w: unknown geometry id %d %d", ErrValidation, id.AsInt(), idMap[id])
		}
		pos, err := m.GetPosition(id)
		if err != nil {
			return nil, fmt.Errorf("%w: missing geometry id %d %s: %w", ErrValidation, id.AsInt(), id.SubsystemName(), err)
		}
		leaf := strings.HasPrefix(tree.Node(idMap[id]).Name, "Bar_")
		checks = append(checks, volumeCheck{Id: id, Position: pos, Leaf: leaf})
	}
	return checks, nil
}

// validateGeometry locates every mapped volume from its position, trials
// times in a shuffled order. Bars must be found as themselves; other
// volumes only need to be found.
func validateGeometry(m *geommanager.Manager, trials, numWorkers int, out io.Writer) error {
	checks, err := volumeChecks(m)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Checking %d geometry ids\n", len(checks))

	for trial := 0; trial < trials; trial++ {
		rand.Shuffle(len(checks), func(i, j int) {
			checks[i], checks[j] = checks[j], checks[i]
		})
		for _, r := range runChecks(m, checks, numWorkers) {
			if r.Err != nil {
				return fmt.Errorf("%w: couldn't find geometry id %d: %w", ErrValidation, r.Check.Id.AsInt(), r.Err)
			}
			if r.Check.Leaf && r.Found != r.Check.Id {
				return fmt.Errorf("%w: geometry id %d found as %d", ErrValidation, r.Check.Id.AsInt(), r.Found.AsInt())
			}
		}
	}
	return nil
}
