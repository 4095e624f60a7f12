package domain

import "time"

// 以下实体属于只读的参考数据，由人员与目录管理模块维护

type Area struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Specialty struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	AreaID int64  `json:"areaID"`
}

type Professional struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	LaborRegimeID int64     `json:"laborRegimeID"`
	CreatedAt     time.Time `json:"createdAt"`
}
