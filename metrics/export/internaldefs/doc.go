// Package internaldefs holds the shared metric name table used by the
// exporter packages. It exists so the OTel and Prometheus exporters always
// agree on names and help strings.
package internaldefs
