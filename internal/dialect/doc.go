// Package dialect renders provisioning statements to engine-specific text.
//
// Available dialects:
//   - Hive: HiveQL as accepted by Spark SQL with Hive support
//   - Postgres: PostgreSQL DDL plus server-side COPY for bulk loads
//
// Identifiers are validated and emitted unquoted, so both dialects fold
// case the way Hive does. Literals are escaped per dialect.
package dialect
