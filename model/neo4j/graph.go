// authorizer/model/neo4j/graph.go
package echo_neo4j

// Directory graph shape: (User)-[:MEMBER_OF]->(Department), (User)-[:BELONGS_TO_GROUP]->(Group)
const (
	LabelUser       = "User"
	LabelGroup      = "Group"
	LabelDepartment = "Department"

	RelBelongsToGroup = "BELONGS_TO_GROUP"
	RelMemberOf       = "MEMBER_OF"
)
