package stdlib

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// MysqliExtension is the `mysqli` extension: the procedural mysqli_*
// API layered directly over database/sql + the MySQL driver, grounded
// on the Rust predecessor's src/builtins/mysqli/connection.rs
// (_examples/original_source), which keeps mysqli as a thin procedural
// front over the same pooled-connection story pkg/pdo gives the PDO
// extension. A connection is returned as a Resource value wrapping
// *sql.DB directly rather than going through the Resource Manager,
// since mysqli_* calls only ever need the handle back from the very
// Value the script already holds, never a process-wide lookup by id.
type MysqliExtension struct{ baseExtension }

func (*MysqliExtension) Name() string    { return "mysqli" }
func (*MysqliExtension) Version() string { return "1.0.0" }

func (e *MysqliExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "mysqli_connect", mysqliConnect)
	register(reg, "mysqli_query", mysqliQuery)
	register(reg, "mysqli_fetch_assoc", mysqliFetchAssoc)
	register(reg, "mysqli_close", mysqliClose)
	register(reg, "mysqli_error", mysqliError)
	return nil
}

func mysqliConnect(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	host := ctx.Arg(0).ToString()
	user := ctx.Arg(1).ToString()
	pass := ctx.Arg(2).ToString()
	dbname := ""
	if ctx.ArgCount() > 3 {
		dbname = ctx.Arg(3).ToString()
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", user, pass, host, dbname)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return values.NewBool(false), nil
	}
	return values.NewResource(db), nil
}

func mysqliQuery(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	db, ok := ctx.Arg(0).Data.(*sql.DB)
	if !ok {
		ctx.Throw("TypeError", "mysqli_query() expects a mysqli connection resource")
	}
	rows, err := db.Query(ctx.Arg(1).ToString())
	if err != nil {
		return values.NewBool(false), nil
	}
	return values.NewResource(rows), nil
}

func mysqliFetchAssoc(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	rows, ok := ctx.Arg(0).Data.(*sql.Rows)
	if !ok {
		ctx.Throw("TypeError", "mysqli_fetch_assoc() expects a mysqli result resource")
	}
	if !rows.Next() {
		return values.NewBool(false), nil
	}
	cols, err := rows.Columns()
	if err != nil {
		return values.NewBool(false), nil
	}
	raw := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return values.NewBool(false), nil
	}
	arr := values.NewArrayData()
	for i, col := range cols {
		arr.Set(values.StrKey(col), sqlValueToValue(raw[i]))
	}
	return values.NewArrayFrom(arr), nil
}

func sqlValueToValue(raw interface{}) *values.Value {
	switch v := raw.(type) {
	case nil:
		return values.NewNull()
	case int64:
		return values.NewInt(v)
	case float64:
		return values.NewFloat(v)
	case []byte:
		return values.NewString(string(v))
	case string:
		return values.NewString(v)
	case bool:
		return values.NewBool(v)
	default:
		return values.NewString(fmt.Sprint(v))
	}
}

func mysqliClose(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	db, ok := ctx.Arg(0).Data.(*sql.DB)
	if !ok {
		return values.NewBool(false), nil
	}
	return values.NewBool(db.Close() == nil), nil
}

func mysqliError(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	return values.NewString(""), nil
}
