package domain

// Agent identifies one of the specialized request handlers.
type Agent int

const (
	AgentDoc Agent = iota
	AgentWeather
	AgentMeeting
	AgentSQL
)

// Label returns the routing label understood by the classifier prompt.
func (a Agent) Label() string {
	switch a {
	case AgentWeather:
		return "weather_agent"
	case AgentMeeting:
		return "meeting_agent"
	case AgentSQL:
		return "sql_agent"
	default:
		return "doc_agent"
	}
}

func (a Agent) String() string {
	return a.Label()
}

// Agents lists every agent in declaration order.
func Agents() []Agent {
	return []Agent{AgentDoc, AgentWeather, AgentMeeting, AgentSQL}
}
