package resource

// DatasetData is the data payload of a BigQuery.SQLWorkspace record.
type DatasetData struct {
	ID                                  string           `json:"id"`
	Name                                string           `json:"name"`
	Project                             string           `json:"project"`
	Region                              string           `json:"region"`
	MatchingProjects                    []ProjectModel   `json:"matching_projects"`
	DatasetReference                    DatasetReference `json:"dataset_reference"`
	FriendlyName                        string           `json:"friendly_name,omitempty"`
	Tables                              []Table          `json:"tables"`
	TableSchemas                        []TableSchemaRef `json:"table_schemas"`
	Access                              []Access         `json:"access"`
	Labels                              []Label          `json:"labels"`
	Etag                                string           `json:"etags,omitempty"`
	Location                            string           `json:"location"`
	VisibleOnConsole                    bool             `json:"visible_on_console"`
	DefaultTableExpirationMs            int64            `json:"default_table_expiration_ms,omitempty"`
	DefaultTableExpirationMsDisplay     string           `json:"default_table_expiration_ms_display,omitempty"`
	DefaultPartitionExpirationMs        int64            `json:"default_partition_expiration_ms,omitempty"`
	DefaultPartitionExpirationMsDisplay string           `json:"default_partition_expiration_ms_display,omitempty"`
	SelfLink                            string           `json:"self_link"`
	CreationTime                        string           `json:"creation_time,omitempty"`
	LastModifiedTime                    string           `json:"last_modified_time,omitempty"`
}

func (*DatasetData) isData() {}

// DatasetReference identifies a dataset.
type DatasetReference struct {
	DatasetID string `json:"dataset_id"`
	ProjectID string `json:"project_id"`
}

// ProjectModel is a BigQuery-visible project matching the dataset's project.
type ProjectModel struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	NumericID    string `json:"numeric_id"`
	ProjectID    string `json:"project_id"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

// Access is one dataset access entry.
type Access struct {
	Role         string `json:"role,omitempty"`
	SpecialGroup string `json:"special_group,omitempty"`
	UserByEmail  string `json:"user_by_email,omitempty"`
	GroupByEmail string `json:"group_by_email,omitempty"`
	Domain       string `json:"domain,omitempty"`
}

// Table is a table of a dataset.
type Table struct {
	ID                string             `json:"id"`
	Kind              string             `json:"kind"`
	TableReference    TableReference     `json:"table_reference"`
	FriendlyName      string             `json:"friendly_name,omitempty"`
	Type              string             `json:"type,omitempty"`
	TimePartitioning  *TimePartitioning  `json:"time_partitioning,omitempty"`
	RangePartitioning *RangePartitioning `json:"range_partitioning,omitempty"`
	UseLegacySQL      *bool              `json:"use_legacy_sql,omitempty"`
	NumRows           string             `json:"num_rows,omitempty"`
	Schema            []TableSchema      `json:"schema"`
	Labels            []Label            `json:"labels,omitempty"`
	CreationTime      string             `json:"creation_time,omitempty"`
	ExpirationTime    string             `json:"expiration_time,omitempty"`
	LastModifiedTime  string             `json:"last_modified_time,omitempty"`
}

// TableReference identifies a table.
type TableReference struct {
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
	TableID   string `json:"table_id"`
}

// TimePartitioning describes time-based table partitioning.
type TimePartitioning struct {
	Type                   string `json:"type"`
	ExpirationMs           int64  `json:"expiration_ms,omitempty"`
	Field                  string `json:"field,omitempty"`
	RequirePartitionFilter bool   `json:"require_partition_filter,omitempty"`
}

// RangePartitioning describes integer-range table partitioning.
type RangePartitioning struct {
	Field    string `json:"field"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Interval int64  `json:"interval"`
}

// TableSchema is one top-level column of a table.
type TableSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// TableSchemaRef is a column flattened to dataset level.
type TableSchemaRef struct {
	TableID string `json:"table_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Mode    string `json:"mode"`
}
