package subagent

// toolScopes maps each locally-implemented tool name to the scope it
// requires (§4.K.3: "fetch allowed tools from role scope-set"). A tool
// absent from this table is rejected as outside the domain boundaries;
// a tool listed here without a local handler (everything except
// read_file, write_file and query_rag) goes to the MCP router (§4.K.5).
var toolScopes = map[string]string{
	"read_file":      "fs.read",
	"write_file":     "fs.write",
	"query_rag":      "rag.query",
	"shell_test":     "shell.test",
	"security_audit": "security.audit",
	"data_execute":   "data.execute",
	"memory_search":  "memory.search",
}
