package cmd

import (
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/trove/internal/entities"
	"github.com/zjrosen/trove/internal/entity"
)

// entityInfo is the YAML shape rendered per entity.
type entityInfo struct {
	Name             string   `yaml:"name"`
	EnabledByDefault bool     `yaml:"enabled_by_default"`
	Dependencies     []string `yaml:"dependencies,omitempty"`
	Operations       []string `yaml:"operations"`
	Converters       []string `yaml:"converters,omitempty"`
}

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List registered entities and their operations",
	Long: `List every registered entity type with its default, dependencies,
declared operations and converters as YAML.

Examples:
  trove entities
  trove entities | yq '.[].name'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var infos []entityInfo
		for _, reg := range entities.All() {
			infos = append(infos, describeEntity(reg.Descriptor))
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(infos)
	},
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
}

func describeEntity(d *entity.Descriptor) entityInfo {
	info := entityInfo{
		Name:             d.Name,
		EnabledByDefault: d.EnabledByDefault,
		Dependencies:     d.Dependencies,
	}
	for name := range d.Operations {
		info.Operations = append(info.Operations, name)
	}
	sort.Strings(info.Operations)
	for name := range d.Converters {
		info.Converters = append(info.Converters, name)
	}
	sort.Strings(info.Converters)
	return info
}
