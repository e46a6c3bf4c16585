// @title Coding Steps 后端 API
// @version 1.0
// @description 编程课程任务推进与人工评分服务。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import "coding_steps_backend/internal/cli"

func main() {
	cli.Execute()
}
