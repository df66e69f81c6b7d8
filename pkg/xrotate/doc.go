// Package xrotate 提供日志文件轮转器。
//
// 两种实现，共用 [Rotator] 接口:
//
//   - [NewIndex]: 序号命名方案。当前文件始终是 name.log，轮转时整组
//     后移（name_1.log 最新、name_2.log 次之 ...），超出保有数量的
//     最老文件被删除。序号调整是对账式的: 缺失的序号被跳过，进程
//     重启或外部删除留下的缺口不会中断轮转。
//   - [NewArchive]: 基于 lumberjack 的时间戳归档方案，支持按天数
//     清理与 gzip 压缩，适合长期留存场景。
//
// 两者的 Write 都在内部处理轮转触发，调用方只需持续写入。
package xrotate
