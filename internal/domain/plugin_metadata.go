package domain

// PluginType enumerates the capability families a plugin can declare.
type PluginType int

const (
	PluginTypeDataSource PluginType = iota
	PluginTypeStrategy
	PluginTypeRiskManager
	PluginTypeExecution
	PluginTypeAnalytics
	PluginTypeMonitoring
)

func (t PluginType) String() string {
	switch t {
	case PluginTypeStrategy:
		return "strategy"
	case PluginTypeRiskManager:
		return "risk_manager"
	case PluginTypeExecution:
		return "execution"
	case PluginTypeAnalytics:
		return "analytics"
	case PluginTypeMonitoring:
		return "monitoring"
	default:
		return "data_source"
	}
}

// PluginDependency declares a required or optional edge to another plugin.
type PluginDependency struct {
	PluginID     string `json:"plugin_id"`
	VersionRange string `json:"version_requirement"`
	Optional     bool   `json:"optional"`
}

// PluginMetadata is the manifest every plugin publishes; serialized as JSON
// at <plugin_dir>/plugin.json per the external interface contract.
type PluginMetadata struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Version           string             `json:"version"`
	Description       string             `json:"description"`
	Author            string             `json:"author"`
	PluginType        PluginType         `json:"plugin_type"`
	Capabilities      []string           `json:"capabilities"`
	Dependencies      []PluginDependency `json:"dependencies"`
	MinFrameworkVersion string           `json:"min_framework_version"`
	Tags              []string           `json:"tags"`
}
