package squarecloud

// ServiceStatistics are the public host-wide statistics.
type ServiceStatistics struct {
	Worker   int
	Users    int
	Apps     int
	Websites int
	Ping     int
}

type wireStatistics struct {
	Worker     int `json:"worker"`
	Statistics struct {
		Users    int `json:"users"`
		Apps     int `json:"apps"`
		Websites int `json:"websites"`
		Ping     int `json:"ping"`
	} `json:"statistics"`
}

func (w wireStatistics) toStatistics() *ServiceStatistics {
	return &ServiceStatistics{
		Worker:   w.Worker,
		Users:    w.Statistics.Users,
		Apps:     w.Statistics.Apps,
		Websites: w.Statistics.Websites,
		Ping:     w.Statistics.Ping,
	}
}
