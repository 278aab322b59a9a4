package reader

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/ncfstore/ncf"
)

// SchemaInfo describes one column of an NCF or Parquet file. Offset and
// Length locate the column block and are set for NCF files only.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
	Offset       int64  `json:"offset,omitempty"`
	Length       int64  `json:"length,omitempty"`
}

// ExtractSchemaInfo returns column metadata for an NCF or Parquet file.
//
// NCF columns are reported in file order with their data type; a column
// holding a null bitmap is Optional. Parquet fields are flattened to leaf
// columns with dot notation for nested names (e.g., "address.street").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	reader, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = reader.Close() }()

	switch reader.Format() {
	case FormatNCF:
		return ncfSchemaInfo(reader.NCF().Columns()), nil
	case FormatParquet:
		var schemaInfos []SchemaInfo
		for _, field := range reader.Schema().Fields() {
			schemaInfos = append(schemaInfos, parquetLeaves(field, "", false)...)
		}
		return schemaInfos, nil
	default:
		return nil, fmt.Errorf("%w: %s files carry no schema", ErrUnknownFormat, reader.Format())
	}
}

func ncfSchemaInfo(columns []ncf.ColumnMetadata) []SchemaInfo {
	infos := make([]SchemaInfo, 0, len(columns))
	for _, col := range columns {
		infos = append(infos, SchemaInfo{
			Name:         col.Name,
			Type:         col.Type.String(),
			PhysicalType: col.Type.String(),
			Required:     !col.Nullable,
			Optional:     col.Nullable,
			Repeated:     col.Type == ncf.TypeArray,
			Offset:       col.Offset,
			Length:       col.Length,
		})
	}
	return infos
}

// parquetLeaves flattens a parquet field into its leaf columns. A leaf is
// repeated when it or any enclosing group is.
func parquetLeaves(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []SchemaInfo
		for _, child := range children {
			infos = append(infos, parquetLeaves(child, name, repeated)...)
		}
		return infos
	}

	info := SchemaInfo{
		Name:         name,
		Type:         "GROUP",
		PhysicalType: "GROUP",
		Required:     field.Required(),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}
	if typ := field.Type(); typ != nil {
		info.PhysicalType = physicalTypeNames[typ.Kind()]
		info.Type = friendlyTypeNames[typ.Kind()]
		if lt := typ.LogicalType(); lt != nil {
			info.LogicalType = lt.String()
			if name, ok := logicalTypeNames[info.LogicalType]; ok {
				info.Type = name
			}
		}
		if info.PhysicalType == "" {
			info.PhysicalType, info.Type = "UNKNOWN", "UNKNOWN"
		}
	}
	return []SchemaInfo{info}
}

var physicalTypeNames = map[parquet.Kind]string{
	parquet.Boolean:           "BOOLEAN",
	parquet.Int32:             "INT32",
	parquet.Int64:             "INT64",
	parquet.Int96:             "INT96",
	parquet.Float:             "FLOAT",
	parquet.Double:            "DOUBLE",
	parquet.ByteArray:         "BYTE_ARRAY",
	parquet.FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
}

// friendlyTypeNames differ from the physical names for floating point only.
var friendlyTypeNames = map[parquet.Kind]string{
	parquet.Boolean:           "BOOLEAN",
	parquet.Int32:             "INT32",
	parquet.Int64:             "INT64",
	parquet.Int96:             "INT96",
	parquet.Float:             "FLOAT32",
	parquet.Double:            "FLOAT64",
	parquet.ByteArray:         "BYTE_ARRAY",
	parquet.FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
}

// logicalTypeNames overrides the physical name when the logical type is
// more specific. INT is absent so integers keep their width.
var logicalTypeNames = map[string]string{
	"STRING":    "STRING",
	"UTF8":      "STRING",
	"ENUM":      "ENUM",
	"UUID":      "UUID",
	"DATE":      "DATE",
	"TIME":      "TIME",
	"TIMESTAMP": "TIMESTAMP",
	"DECIMAL":   "DECIMAL",
	"JSON":      "JSON",
	"BSON":      "BSON",
}
