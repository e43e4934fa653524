package zfs

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/mlohr/poolstack/internal/runner"
)

// PropertyAutoSnapshot is the user property consumed by the automatic
// snapshot tooling; read-only pools force it off.
const PropertyAutoSnapshot = "com.sun:auto-snapshot"

// getProperty reads one live property value of the pool dataset.
func (p *Pool) getProperty(ctx context.Context, property string) (string, error) {
	argv := []string{"zfs", "get", "-Hp", "-o", "value", property, p.QualifiedName()}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return "", fmt.Errorf("(zfs-get) %w", err)
	}
	if !res.Success() {
		return "", fmt.Errorf("(zfs-get) %w", runner.NewCommandError(argv, res))
	}

	return res.OneLine(), nil
}

// setProperty writes one property value on the pool dataset.
func (p *Pool) setProperty(ctx context.Context, property string, value string) error {
	argv := []string{"zfs", "set", property + "=" + value, p.QualifiedName()}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return fmt.Errorf("(zfs-set) %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("(zfs-set) %w", runner.NewCommandError(argv, res))
	}

	return nil
}

// desiredProperties is the fixed property set reconciled on mount. Read-only
// pools force the auto-snapshot flag off and add a read-only property.
func (p *Pool) desiredProperties() map[string]string {
	desired := maps.Clone(p.properties)
	if desired == nil {
		desired = map[string]string{}
	}

	if _, exists := desired[PropertyAutoSnapshot]; !exists {
		desired[PropertyAutoSnapshot] = "true"
	}

	if p.ReadOnly() {
		desired[PropertyAutoSnapshot] = "false"
		desired["readonly"] = "on"
	}

	return desired
}

// reconcileProperties writes only the properties whose live value differs
// from the desired one, in deterministic key order.
func (p *Pool) reconcileProperties(ctx context.Context) error {
	desired := p.desiredProperties()

	for _, property := range slices.Sorted(maps.Keys(desired)) {
		want := desired[property]

		live, err := p.getProperty(ctx, property)
		if err != nil {
			return err
		}

		if live == want {
			continue
		}

		slog.Info("Reconciling property.",
			"pool", p.QualifiedName(),
			"property", property,
			"live", live,
			"want", want,
		)

		if err := p.setProperty(ctx, property, want); err != nil {
			return err
		}
	}

	return nil
}
